package language

import (
	"strings"

	"github.com/juju/errors"
)

type Language uint8

const (
	Chinese Language = iota
	Japanese
	Korean
	Russian
	English
	Arabic
	Thai
	Vietnamese
	numLanguages
)

var ErrUnknownLanguage = errors.New("unknown language")

var codes = [numLanguages]string{"zh", "ja", "ko", "ru", "en", "ar", "th", "vi"}

// analyzers are the built-in Elasticsearch analyzers used for per-language name
// sub-fields. Scripts without a dedicated analyzer fall back to standard.
var analyzers = [numLanguages]string{"cjk", "cjk", "cjk", "russian", "english", "arabic", "thai", "standard"}

func (l Language) Code() string {
	if l >= numLanguages {
		return ""
	}
	return codes[l]
}

func (l Language) Analyzer() string {
	if l >= numLanguages {
		return "standard"
	}
	return analyzers[l]
}

func (l Language) String() string {
	return l.Code()
}

func FromCode(code string) (Language, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	for i, c := range codes {
		if c == code {
			return Language(i), nil
		}
	}
	return 0, errors.Annotatef(ErrUnknownLanguage, "%q", code)
}

// All returns every supported language in enumeration order.
func All() []Language {
	ret := make([]Language, 0, numLanguages)
	for l := Language(0); l < numLanguages; l++ {
		ret = append(ret, l)
	}
	return ret
}

// Set is a set of languages. Iteration always follows enumeration order.
type Set uint16

func NewSet(langs ...Language) Set {
	var s Set
	for _, l := range langs {
		s = s.Add(l)
	}
	return s
}

func (s Set) Add(l Language) Set {
	return s | 1<<l
}

func (s Set) Has(l Language) bool {
	return s&(1<<l) != 0
}

func (s Set) Len() int {
	n := 0
	for l := Language(0); l < numLanguages; l++ {
		if s.Has(l) {
			n++
		}
	}
	return n
}

func (s Set) Languages() []Language {
	ret := make([]Language, 0, s.Len())
	for l := Language(0); l < numLanguages; l++ {
		if s.Has(l) {
			ret = append(ret, l)
		}
	}
	return ret
}

func (s Set) Codes() []string {
	ret := make([]string, 0, s.Len())
	for l := Language(0); l < numLanguages; l++ {
		if s.Has(l) {
			ret = append(ret, l.Code())
		}
	}
	return ret
}

func (s Set) String() string {
	return strings.Join(s.Codes(), ",")
}
