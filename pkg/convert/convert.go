package convert

import (
	"strconv"
	"strings"
)

// StrTo parses configuration strings.
type StrTo string

func (s StrTo) String() string {
	return string(s)
}

var sizeSuffixes = []struct {
	suffix     string
	multiplier int64
}{
	{"TB", 1 << 40},
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// ToSize 将字符串转换为字节大小，支持 B, KB, MB, GB, TB 后缀（1024 进制）
func (s StrTo) ToSize() (int64, error) {
	sizeStr := strings.ToUpper(strings.TrimSpace(s.String()))
	if sizeStr == "" {
		return 0, nil
	}

	var multiplier int64 = 1
	for _, sf := range sizeSuffixes {
		if strings.HasSuffix(sizeStr, sf.suffix) {
			multiplier = sf.multiplier
			sizeStr = strings.TrimSuffix(sizeStr, sf.suffix)
			break
		}
	}

	size, err := strconv.ParseInt(strings.TrimSpace(sizeStr), 10, 64)
	if err != nil {
		return 0, err
	}
	return size * multiplier, nil
}

// MustToSize 将字符串转换为字节大小，如果出错返回默认值
func (s StrTo) MustToSize(defaultVal int64) int64 {
	v, err := s.ToSize()
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}
