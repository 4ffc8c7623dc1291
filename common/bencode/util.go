package bencode

import (
	"strings"
)

func GetBytes(dict Dict, path string) ([]byte, bool) {
	switch r := GetByPath(dict, path).(type) {
	case Bytes:
		return r, true
	default:
		return nil, false
	}
}

func GetInt(dict Dict, path string) (int64, bool) {
	switch r := GetByPath(dict, path).(type) {
	case Int:
		return int64(r), true
	default:
		return 0, false
	}
}

func GetList(dict Dict, path string) (List, bool) {
	switch r := GetByPath(dict, path).(type) {
	case List:
		return r, true
	default:
		return nil, false
	}
}

func GetDict(dict Dict, path string) (Dict, bool) {
	switch r := GetByPath(dict, path).(type) {
	case Dict:
		return r, true
	default:
		return Dict{}, false
	}
}

// GetByPath walks dotted keys through nested dicts. Keys that contain dots
// themselves (e.g. "name.utf-8") must be looked up with Dict.Get.
func GetByPath(dict Dict, path string) Value {
	parts := strings.Split(path, ".")
	var m Value = dict
	for _, part := range parts {
		d, ok := m.(Dict)
		if !ok {
			return nil
		}
		m, ok = d.Get(part)
		if !ok {
			return nil
		}
	}
	return m
}

func CheckMapPath(dict Dict, path string) bool {
	return GetByPath(dict, path) != nil
}
