package convert

// Bool2Int converts a boolean to an integer
// Bool2Int 将布尔值转换为整数
func Bool2Int(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Int2Bool 非零即 true
func Int2Bool(i int64) bool {
	return i != 0
}
