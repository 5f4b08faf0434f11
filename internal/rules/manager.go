package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"kpilens/internal/model"
)

var (
	// ErrDuplicateRule 规则名重复
	ErrDuplicateRule = errors.New("duplicate rule name")
	// ErrCircularDependency 规则依赖成环
	ErrCircularDependency = errors.New("circular dependency")
)

// Manager 规则依赖管理器。
// 依赖关系靠子串匹配推断：逻辑文本中出现另一条规则的名字即视为依赖
// （与词边界无关，属已知的启发式行为）。插入时同时补全反向边——
// 既有规则的逻辑里若出现新规则名，也挂上依赖。每次插入后重算拓扑执行顺序，
// 成环的插入被整体拒绝，既有状态不变。
type Manager struct {
	rules map[string]*model.Rule
	deps  map[string][]string
	order []string
}

// NewManager 创建依赖管理器
func NewManager() *Manager {
	return &Manager{
		rules: make(map[string]*model.Rule),
		deps:  make(map[string][]string),
	}
}

// Add 注册规则。重名返回 ErrDuplicateRule；
// 引入循环依赖返回 ErrCircularDependency 且不留任何痕迹。
func (m *Manager) Add(rule *model.Rule) error {
	name := rule.DisplayName()
	if _, ok := m.rules[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateRule, name)
	}

	// 在候选依赖图上验证，通过后才提交
	candidate := make(map[string][]string, len(m.deps)+1)
	for k, v := range m.deps {
		candidate[k] = v
	}

	var newDeps []string
	for existing := range m.rules {
		if strings.Contains(rule.Logic, existing) {
			newDeps = append(newDeps, existing)
		}
	}
	candidate[name] = newDeps

	for existing, r := range m.rules {
		if strings.Contains(r.Logic, name) && !contains(candidate[existing], name) {
			refreshed := append(append([]string(nil), candidate[existing]...), name)
			candidate[existing] = refreshed
		}
	}

	candidateRules := make(map[string]*model.Rule, len(m.rules)+1)
	for k, v := range m.rules {
		candidateRules[k] = v
	}
	candidateRules[name] = rule

	order, err := topoOrder(candidateRules, candidate)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrCircularDependency, name)
	}

	m.rules = candidateRules
	m.deps = candidate
	m.order = order
	return nil
}

// Len 已注册规则数
func (m *Manager) Len() int {
	return len(m.rules)
}

// Rule 按名取规则
func (m *Manager) Rule(name string) (*model.Rule, bool) {
	r, ok := m.rules[name]
	return r, ok
}

// Dependencies 某规则的依赖列表
func (m *Manager) Dependencies(name string) []string {
	out := make([]string, len(m.deps[name]))
	copy(out, m.deps[name])
	return out
}

// ExecutionOrder 当前拓扑执行顺序（依赖先行）
func (m *Manager) ExecutionOrder() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// OrderedRules 按拓扑顺序返回规则
func (m *Manager) OrderedRules() []*model.Rule {
	out := make([]*model.Rule, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.rules[name])
	}
	return out
}

// topoOrder 深度优先拓扑排序；灰色节点重入即为回边（成环）。
func topoOrder(rules map[string]*model.Rule, deps map[string][]string) ([]string, error) {
	visited := make(map[string]bool)
	onPath := make(map[string]bool)
	order := make([]string, 0, len(rules))

	var visit func(rule string) error
	visit = func(rule string) error {
		if onPath[rule] {
			return fmt.Errorf("%w: %q", ErrCircularDependency, rule)
		}
		if visited[rule] {
			return nil
		}
		onPath[rule] = true
		for _, d := range deps[rule] {
			if err := visit(d); err != nil {
				return err
			}
		}
		delete(onPath, rule)
		visited[rule] = true
		order = append(order, rule)
		return nil
	}

	// 遍历顺序按规则 ID 固定，保证排序结果可复现
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return rules[names[i]].ID < rules[names[j]].ID
	})

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
