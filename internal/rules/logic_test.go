package rules

import (
	"errors"
	"math"
	"testing"
)

func TestApplyLogic(t *testing.T) {
	t.Parallel()

	cases := []struct {
		logic string
		value float64
		want  float64
	}{
		{"", 42, 42},
		{"value", 42, 42},
		{"x", 42, 42},
		{"value * 100", 0.95, 95},
		{"value / 1000", 5000, 5},
		{"(value + 10) * 2", 5, 30},
		{"-value", 3, -3},
		{"value * 2 + 1", 4, 9},
		{"value + 2 * 3", 1, 7},
		{"100 - value", 30, 70},
		{"1.5 * x", 2, 3},
	}

	for _, tc := range cases {
		got, err := ApplyLogic(tc.logic, tc.value)
		if err != nil {
			t.Fatalf("ApplyLogic(%q, %v) error: %v", tc.logic, tc.value, err)
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("ApplyLogic(%q, %v) = %v, want %v", tc.logic, tc.value, got, tc.want)
		}
	}
}

func TestApplyLogic_Rejected(t *testing.T) {
	t.Parallel()

	for _, logic := range []string{
		"value ** 2",       // 不支持幂
		"import os",        // 任意标识符
		"value + ",         // 残缺表达式
		"(value",           // 括号不闭合
		"good: >90",        // 阈值说明不是算式
		"value / 0",        // 除零
		"value; value",     // 非法字符
	} {
		if _, err := ApplyLogic(logic, 1); !errors.Is(err, ErrBadLogic) {
			t.Fatalf("ApplyLogic(%q) want ErrBadLogic, got %v", logic, err)
		}
	}
}
