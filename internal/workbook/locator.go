package workbook

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidAddress 单元格位置字符串不符合 [A-Z]{1,3}[1-9][0-9]* 格式
var ErrInvalidAddress = errors.New("invalid cell address")

var cellAddressRe = regexp.MustCompile(`^([A-Z]{1,3})([1-9][0-9]*)$`)

// Locate 将单元格位置字符串解析为 0 基行列索引。
// "A1" -> (0,0)，"AB10" -> (9,27)。不做边界校验，越界由调用方对照工作表尺寸判断。
func Locate(address string) (row, col int, err error) {
	m := cellAddressRe.FindStringSubmatch(address)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	col, err = ColumnIndex(m[1])
	if err != nil {
		return 0, 0, err
	}

	row = 0
	for _, ch := range m[2] {
		row = row*10 + int(ch-'0')
	}
	return row - 1, col, nil
}

// ColumnIndex 将列字母转换为 0 基列索引。
// 每位按 A=1..Z=26 计权："A"=0，"Z"=25，"AA"=26。
func ColumnIndex(letters string) (int, error) {
	if letters == "" || len(letters) > 3 {
		return 0, fmt.Errorf("%w: column %q", ErrInvalidAddress, letters)
	}
	idx := 0
	for _, ch := range letters {
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("%w: column %q", ErrInvalidAddress, letters)
		}
		idx = idx*26 + int(ch-'A'+1)
	}
	return idx - 1, nil
}

// IsValidAddress 校验单元格位置格式
func IsValidAddress(address string) bool {
	return cellAddressRe.MatchString(address)
}
