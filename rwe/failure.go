package rwe

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

const exceptionDetailsMarker = "%%%EXCEPTIONDETAILS%%%"

//go:embed exception.tpl
var defaultExceptionTemplate string

var consoleRule = strings.Repeat("*", 78)

// Template variables assigned by Fail.
const (
	VarExceptionMessages = "RWE_exceptionMessages"
	VarIsModuleActive    = "RWE_isModuleActive"
	VarActiveModule      = "RWE_activeModule"
)

// Fail reports msgs and terminates. With a template engine the messages are assigned
// to it and the exception template is displayed; the embedded default page is written
// to the output when no template is set. Without an engine a plain text block is
// written instead. The exit function is then called with status 1. Fail never
// returns: if the exit function does, it panics with *Abort.
func (h *Host) Fail(msgs ...string) {
	if len(msgs) == 0 {
		msgs = []string{"unknown exception"}
	}

	h.mu.Lock()
	active := h.active
	tpl := h.tpl
	userTemplate := h.exceptionTemplate
	out := h.out
	exit := h.exit
	h.mu.Unlock()

	ctx := context.Background()
	ab := &Abort{Messages: append([]string(nil), msgs...)}
	if active != nil {
		ctx = active.ctx
		ab.Module = active.name
		ab.ExecutionID = active.id
	}

	var err error
	if tpl != nil {
		err = h.failTemplate(tpl, userTemplate, out, ab)
	} else {
		err = writeConsoleFailure(out, ab)
	}

	if h.logger != nil {
		fields := map[string]interface{}{"messages": ab.Messages}
		if ab.Module != "" {
			fields["module"] = ab.Module
			fields["execution_id"] = ab.ExecutionID
		}
		h.logger.ErrorWithContext(ctx, "module host aborted", err, fields)
	}

	if exit != nil {
		exit(ab.ExitStatus())
	}
	panic(ab)
}

func (h *Host) failTemplate(tpl TemplateEngine, userTemplate string, out io.Writer, ab *Abort) error {
	tpl.Assign(VarExceptionMessages, ab.Messages)
	tpl.Assign(VarIsModuleActive, 0)
	if ab.Module != "" {
		tpl.Assign(VarActiveModule, ModuleClassPrefix+ab.Module)
		tpl.Assign(VarIsModuleActive, 1)
	}

	if userTemplate != "" {
		if err := tpl.Display(userTemplate); err != nil {
			return fmt.Errorf("display exception template %s: %w", userTemplate, err)
		}
		return nil
	}
	return writeDefaultFailure(out, ab)
}

func writeDefaultFailure(w io.Writer, ab *Abort) error {
	details := make([]string, len(ab.Messages))
	for i, msg := range ab.Messages {
		details[i] = "  <b>Exception</b>: " + msg
	}
	body := strings.Join(details, "<br />\n")
	if ab.Module != "" {
		body += "<br />\n  <b>In module</b>: " + ModuleClassPrefix + ab.Module
	}

	page := strings.ReplaceAll(defaultExceptionTemplate, exceptionDetailsMarker, body)
	_, err := io.WriteString(w, page)
	return err
}

func writeConsoleFailure(w io.Writer, ab *Abort) error {
	var b strings.Builder
	b.WriteString(consoleRule + "\n")
	for _, msg := range ab.Messages {
		b.WriteString("Exception: " + stripTags(msg) + "\n")
	}
	if ab.Module != "" {
		b.WriteString("In module: " + ModuleClassPrefix + ab.Module + "\n")
	}
	b.WriteString(consoleRule + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// stripTags removes HTML tags from s and keeps its text, entities included, as is.
func stripTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if !errors.Is(z.Err(), io.EOF) {
				b.Write(z.Raw())
			}
			return b.String()
		case html.TextToken:
			b.Write(z.Raw())
		}
	}
}
