package rwe

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aalemi-dev/rwe/database"
)

// Separators used by SettingStr.
const (
	DefaultKeyValueSeparator = " "
	DefaultElementSeparator  = ", "
)

// ModuleBase carries the state every module shares: the owning host, the settings
// schema and live settings, the variable prefix and the published-data flag.
// Modules embed it and call PreExecute at the start of Execute:
//
//	type Module struct{ *rwe.ModuleBase }
//
//	func (m *Module) Execute(ctx context.Context, s rwe.Settings) any {
//		m.PreExecute(s)
//		m.Publish("greeting", m.SettingStr("name", "world"))
//		return true
//	}
type ModuleBase struct {
	host     *Host
	schema   Schema
	prefix   string
	settings Settings
	isData   bool
}

// NewModuleBase returns a base in its just-constructed state.
func NewModuleBase(h *Host, variablePrefix string, schema Schema) *ModuleBase {
	if schema == nil {
		schema = Schema{}
	}
	m := &ModuleBase{host: h, schema: schema, prefix: variablePrefix}
	m.Reset()
	return m
}

// Reset restores the schema defaults and the initial variable prefix and clears the
// published-data flag.
func (m *ModuleBase) Reset() {
	m.settings = m.schema.Defaults()
	m.settings[VariablePrefixKey] = m.prefix
	m.isData = false
}

// PreExecute applies the caller's settings and publishes isData=0. Settings that
// fail validation are fatal.
func (m *ModuleBase) PreExecute(settings Settings) {
	if err := m.schema.Apply(m.settings, settings); err != nil {
		m.Fail("applySettings: "+err.Error())
		return
	}
	if tpl := m.host.TemplateEngine(); tpl != nil {
		tpl.Assign(moduleVariable(m.VariablePrefix(), "isData"), 0)
	}
}

// Publish assigns value to the template variable RWE_Module_<prefix>__<name>. The
// first publish after PreExecute also sets isData to 1. Without a template engine
// it does nothing.
func (m *ModuleBase) Publish(name string, value any) {
	tpl := m.host.TemplateEngine()
	if tpl == nil {
		return
	}
	prefix := m.VariablePrefix()
	tpl.Assign(moduleVariable(prefix, name), value)
	if !m.isData {
		tpl.Assign(moduleVariable(prefix, "isData"), 1)
		m.isData = true
	}
}

// Settings returns a copy of the live settings.
func (m *ModuleBase) Settings() Settings {
	return m.settings.Clone()
}

// Setting returns the live value of key, or nil.
func (m *ModuleBase) Setting(key string) any {
	return m.settings[key]
}

// SettingString renders a setting as text. An absent or empty setting yields def.
// List and mapping settings are joined with elemSep; with keysToo every element is
// written as key, kvSep, value.
func (m *ModuleBase) SettingString(key, def string, keysToo bool, kvSep, elemSep string) string {
	v, ok := m.settings[key]
	if !ok {
		return def
	}
	return settingToString(v, def, keysToo, kvSep, elemSep)
}

// SettingStr is SettingString with values only, joined by ", ".
func (m *ModuleBase) SettingStr(key, def string) string {
	return m.SettingString(key, def, false, DefaultKeyValueSeparator, DefaultElementSeparator)
}

// MissingSettings returns the keys whose live value is empty, in argument order.
func (m *ModuleBase) MissingSettings(keys ...string) []string {
	var missing []string
	for _, key := range keys {
		if isEmpty(m.settings[key]) {
			missing = append(missing, key)
		}
	}
	return missing
}

// VariablePrefix is the prefix publish uses for this execution.
func (m *ModuleBase) VariablePrefix() string {
	if p, ok := m.settings[VariablePrefixKey]; ok && p != nil {
		return fmt.Sprint(p)
	}
	return m.prefix
}

func (m *ModuleBase) Host() *Host {
	return m.host
}

func (m *ModuleBase) HasDatabase() bool {
	return m.host.HasDatabase()
}

func (m *ModuleBase) Database() database.Manager {
	return m.host.Database()
}

// Fail forwards to Host.Fail and never returns.
func (m *ModuleBase) Fail(msgs ...string) {
	m.host.Fail(msgs...)
}

// OpSettingKey names the setting that selects the operation of an op-based module.
const OpSettingKey = "op"

// OpModuleBase is a ModuleBase whose behaviour is selected by the op setting.
type OpModuleBase struct {
	*ModuleBase
	validOps []string
}

func NewOpModuleBase(h *Host, variablePrefix string, schema Schema, validOps ...string) *OpModuleBase {
	return &OpModuleBase{
		ModuleBase: NewModuleBase(h, variablePrefix, schema),
		validOps:   append([]string(nil), validOps...),
	}
}

func (m *OpModuleBase) ValidOps() []string {
	return append([]string(nil), m.validOps...)
}

func (m *OpModuleBase) SetValidOps(ops ...string) {
	m.validOps = append([]string(nil), ops...)
}

func (m *OpModuleBase) IsValidOp(op string) bool {
	return slices.Contains(m.validOps, op)
}

// ValidOpsString joins the valid ops with ", ".
func (m *OpModuleBase) ValidOpsString() string {
	return strings.Join(m.validOps, ", ")
}

// Op returns the op setting, which defaults to the schema default.
func (m *OpModuleBase) Op() string {
	v := m.Setting(OpSettingKey)
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
