package messenger

import "strconv"

// seedSettings builds the initial settings map from schema defaults.
// Hydration overwrites this wholesale when a persisted snapshot exists.
func seedSettings(schema []SettingField) Settings {
	s := make(Settings, len(schema))
	for _, f := range schema {
		if f.Default == nil {
			continue
		}
		switch f.Type {
		case FieldText, FieldNumber, FieldSelect, FieldCheckbox, FieldRadio:
			s[f.ID] = f.Default
		}
	}
	return s
}

// GetText returns the field value coerced to a string.
func (w *Widget) GetText(id string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return coerceString(w.settingOrDefault(id))
}

// GetNumber returns the field value coerced to a float64.
func (w *Widget) GetNumber(id string) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return coerceNumber(w.settingOrDefault(id))
}

// GetBoolean returns the field value coerced to a bool.
func (w *Widget) GetBoolean(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return coerceBool(w.settingOrDefault(id))
}

// settingOrDefault resolves the stored value, falling back to the schema
// default; callers hold w.mu.
func (w *Widget) settingOrDefault(id string) any {
	if v, ok := w.settings[id]; ok {
		return v
	}
	for _, f := range w.opts.SettingsSchema {
		if f.ID == id {
			return f.Default
		}
	}
	return nil
}

// Coercion never fails; mismatched types degrade to the zero value of the
// requested kind.

func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}

func coerceNumber(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		n, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return n
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func coerceBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false
		}
		return b
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return false
	}
}
