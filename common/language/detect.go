package language

import "unicode"

// vietnameseMarks are Latin letters with diacritics that are characteristic of
// Vietnamese text.
var vietnameseMarks = map[rune]struct{}{}

func init() {
	for _, r := range "ăâêôơưÀÁÂÃÈÉÊÌÍÒÓÔÕÙÚĂĐĨŨƠàáâãèéêìíòóôõùúđĩũÂÊÔ" {
		vietnameseMarks[r] = struct{}{}
	}
}

func classifyRune(r rune) (Language, bool) {
	switch {
	case unicode.Is(unicode.Han, r):
		return Chinese, true
	case r >= 0x3040 && r <= 0x30FF:
		return Japanese, true
	case r >= 0xAC00 && r <= 0xD7AF:
		return Korean, true
	case unicode.Is(unicode.Cyrillic, r):
		return Russian, true
	case r >= 0x0600 && r <= 0x06FF:
		return Arabic, true
	case r >= 0x0E00 && r <= 0x0E7F:
		return Thai, true
	}
	if _, ok := vietnameseMarks[r]; ok {
		return Vietnamese, true
	}
	return 0, false
}

// Detect reports every script found in text. English is returned only when no other
// script matched, so the result is never empty.
func Detect(text string) Set {
	var ret Set
	for _, r := range text {
		if l, ok := classifyRune(r); ok {
			ret = ret.Add(l)
		}
	}
	if ret == 0 {
		ret = ret.Add(English)
	}
	return ret
}
