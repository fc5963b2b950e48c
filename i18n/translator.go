package i18n

// Translator retrieves localized descriptions for issue codes.
// data carries optional context such as "path" and "detail".
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg := t.lookup(code)
	if d := data["detail"]; d != "" {
		msg += ": " + d
	}
	return msg
}

func (t dictTranslator) lookup(code string) string {
	switch t.lang {
	case "ja":
		switch code {
		case "malformed_input":
			return "JSONの構文が不正です"
		case "schema_mismatch":
			return "型が一致しません"
		case "ambiguous_polymorphic_mapping":
			return "派生型の対応付けが曖昧です"
		case "depth_exceeded":
			return "ネストが深すぎます"
		case "reference_cycle":
			return "循環参照を検出しました"
		case "unsupported_type":
			return "サポートされていない型です"
		case "invalid_state":
			return "不正な状態での呼び出しです"
		case "limit_exceeded":
			return "入力サイズの上限を超えました"
		}
	default: // "en"
		switch code {
		case "malformed_input":
			return "malformed JSON"
		case "schema_mismatch":
			return "type mismatch"
		case "ambiguous_polymorphic_mapping":
			return "ambiguous derived type mapping"
		case "depth_exceeded":
			return "nesting too deep"
		case "reference_cycle":
			return "reference cycle"
		case "unsupported_type":
			return "unsupported type"
		case "invalid_state":
			return "invalid state"
		case "limit_exceeded":
			return "input too large"
		}
	}
	return code
}

// New returns the built-in Translator for lang ("en"/"ja"). Other values
// fall back to English.
func New(lang string) Translator {
	if lang != "ja" {
		lang = "en"
	}
	return dictTranslator{lang: lang}
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	currentTranslator = New(lang)
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
