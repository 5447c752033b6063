package convert

import "github.com/jinzhu/copier"

// StructAssign copies same-named fields from src into dst and returns dst.
// StructAssign 将 src 中同名字段复制到 dst
func StructAssign[T any](src any, dst *T) (*T, error) {
	if err := copier.Copy(dst, src); err != nil {
		return nil, err
	}
	return dst, nil
}
