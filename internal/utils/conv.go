package utils

import (
	"strconv"
)

// StringToInt converts string to int, returns def if empty or invalid
func StringToInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

// ParseID 解析路径里的正整数 id
func ParseID(s string) (uint, bool) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
