// Package kernelinfo reads a kernel.org style finger banner and reports which
// kernel trees it lists and at which versions.
//
// Settings:
//
//	fingerBanner  path of the banner file
//	treeRegexps   tree name -> pattern whose first group captures the version
//
// On a match it publishes trees, with parallel treename and version lists, and
// numMatches.
package kernelinfo

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/aalemi-dev/rwe/rwe"
)

const Name = "kernelinfo"

func init() {
	rwe.RegisterModule(Name, New)
}

var schema = rwe.Schema{
	"fingerBanner": {Kind: rwe.KindString},
	"treeRegexps":  {Kind: rwe.KindMap},
}

type treePattern struct {
	tree string
	re   *regexp.Regexp
}

type Module struct {
	*rwe.ModuleBase
}

func New(h *rwe.Host) rwe.Module {
	return &Module{ModuleBase: rwe.NewModuleBase(h, Name, schema)}
}

// Execute returns false when the banner cannot be opened, true otherwise.
func (m *Module) Execute(_ context.Context, settings rwe.Settings) any {
	m.PreExecute(settings)
	path, patterns := m.checkSettings()

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	var treeNames, versions []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		for _, p := range patterns {
			match := p.re.FindStringSubmatch(line)
			if match == nil {
				continue
			}
			version := ""
			if len(match) > 1 {
				version = match[1]
			}
			treeNames = append(treeNames, p.tree)
			versions = append(versions, version)
		}
	}

	if n := len(treeNames); n > 0 {
		m.Publish("trees", map[string][]string{
			"treename": treeNames,
			"version":  versions,
		})
		m.Publish("numMatches", n)
	}
	return true
}

// checkSettings returns the banner path and the compiled patterns ordered by tree name.
func (m *Module) checkSettings() (string, []treePattern) {
	if missing := m.MissingSettings("fingerBanner"); len(missing) > 0 {
		m.Fail("_checkSettings: fingerBanner file not given")
	}
	if missing := m.MissingSettings("treeRegexps"); len(missing) > 0 {
		m.Fail("_checkSettings: treeRegexps not given!")
	}

	regexps, _ := m.Setting("treeRegexps").(rwe.Settings)
	names := make([]string, 0, len(regexps))
	for name := range regexps {
		names = append(names, name)
	}
	sort.Strings(names)

	patterns := make([]treePattern, 0, len(names))
	for _, name := range names {
		re, err := regexp.Compile(fmt.Sprint(regexps[name]))
		if err != nil {
			m.Fail(fmt.Sprintf("_checkSettings: invalid pattern for tree %s: %v", name, err))
		}
		patterns = append(patterns, treePattern{tree: name, re: re})
	}
	return m.SettingStr("fingerBanner", ""), patterns
}
