package workbook

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrLoadFailure 工作簿无法打开或解析
	ErrLoadFailure = errors.New("workbook load failure")
	// ErrMissingSheet 引用的工作表不存在
	ErrMissingSheet = errors.New("sheet not found")
	// ErrOutOfRange 行列索引超出工作表范围
	ErrOutOfRange = errors.New("cell out of range")
	// ErrMissingCell 行在该列上缺失单元格（参差行）
	ErrMissingCell = errors.New("cell missing in ragged row")
)

// Sheet 一张工作表的内存网格。Rows[0] 为表头行，数据行从 Rows[1] 起。
type Sheet struct {
	Name  string
	Rows  [][]string
	width int
}

// RowCount 行数（含表头行）
func (s *Sheet) RowCount() int {
	return len(s.Rows)
}

// ColCount 列数，以表头行宽度为准
func (s *Sheet) ColCount() int {
	return s.width
}

// Header 表头行
func (s *Sheet) Header() []string {
	if len(s.Rows) == 0 {
		return nil
	}
	return s.Rows[0]
}

// Cell 读取指定单元格。越界返回 ErrOutOfRange；
// 行存在但比表头短（参差行）返回 ErrMissingCell，不做补齐。
func (s *Sheet) Cell(row, col int) (string, error) {
	if row < 0 || col < 0 || row >= len(s.Rows) || col >= s.width {
		return "", fmt.Errorf("%w: %s (%d,%d)", ErrOutOfRange, s.Name, row, col)
	}
	r := s.Rows[row]
	if col >= len(r) {
		return "", fmt.Errorf("%w: %s (%d,%d)", ErrMissingCell, s.Name, row, col)
	}
	return strings.TrimSpace(r[col]), nil
}

// Workbook 一次分析运行的数据源：按表名索引的工作表集合。
// 加载后只读，唯一的内部可变状态是读穿透的取值缓存。
type Workbook struct {
	Path   string
	sheets map[string]*Sheet
	order  []string

	// cache 按 "sheet:location" 缓存原始单元格内容
	cache map[string]string
}

// Load 加载整个工作簿到内存。整体成功或整体失败，不存在部分加载。
func Load(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailure, path, err)
	}
	defer f.Close()
	return fromFile(f, path)
}

// LoadReader 从 io.Reader 加载工作簿
func LoadReader(r io.Reader, name string) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailure, name, err)
	}
	defer f.Close()
	return fromFile(f, name)
}

func fromFile(f *excelize.File, path string) (*Workbook, error) {
	wb := &Workbook{
		Path:   path,
		sheets: make(map[string]*Sheet),
		cache:  make(map[string]string),
	}

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s!%s: %v", ErrLoadFailure, path, name, err)
		}
		sheet := &Sheet{Name: name, Rows: rows}
		if len(rows) > 0 {
			sheet.width = len(rows[0])
		}
		wb.sheets[name] = sheet
		wb.order = append(wb.order, name)
	}

	if len(wb.order) == 0 {
		return nil, fmt.Errorf("%w: %s: no sheets", ErrLoadFailure, path)
	}
	return wb, nil
}

// FromGrids 由内存网格直接构建工作簿（测试与内嵌调用场景）
func FromGrids(path string, order []string, grids map[string][][]string) *Workbook {
	wb := &Workbook{
		Path:   path,
		sheets: make(map[string]*Sheet),
		cache:  make(map[string]string),
	}
	for _, name := range order {
		rows := grids[name]
		sheet := &Sheet{Name: name, Rows: rows}
		if len(rows) > 0 {
			sheet.width = len(rows[0])
		}
		wb.sheets[name] = sheet
		wb.order = append(wb.order, name)
	}
	return wb
}

// SheetNames 工作表名列表（文件内顺序）
func (w *Workbook) SheetNames() []string {
	out := make([]string, len(w.order))
	copy(out, w.order)
	return out
}

// FirstSheet 第一张工作表
func (w *Workbook) FirstSheet() *Sheet {
	if len(w.order) == 0 {
		return nil
	}
	return w.sheets[w.order[0]]
}

// Sheet 按名取工作表
func (w *Workbook) Sheet(name string) (*Sheet, error) {
	s, ok := w.sheets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingSheet, name)
	}
	return s, nil
}

// HasSheet 工作表是否存在
func (w *Workbook) HasSheet(name string) bool {
	_, ok := w.sheets[name]
	return ok
}

// CellValue 按 "工作表 + 位置字符串" 读取单元格原始内容，带读穿透缓存。
func (w *Workbook) CellValue(sheetName, address string) (string, error) {
	key := sheetName + ":" + address
	if v, ok := w.cache[key]; ok {
		return v, nil
	}

	sheet, err := w.Sheet(sheetName)
	if err != nil {
		return "", err
	}
	row, col, err := Locate(address)
	if err != nil {
		return "", err
	}
	v, err := sheet.Cell(row, col)
	if err != nil {
		return "", err
	}

	w.cache[key] = v
	return v, nil
}

// Column 按列字母取整列内容（含表头行；参差行位置以空串占位，由调用方自行丢弃）。
func (w *Workbook) Column(sheetName, letters string) ([]string, error) {
	sheet, err := w.Sheet(sheetName)
	if err != nil {
		return nil, err
	}
	col, err := ColumnIndex(letters)
	if err != nil {
		return nil, err
	}
	if col >= sheet.ColCount() {
		return nil, fmt.Errorf("%w: %s column %s", ErrOutOfRange, sheetName, letters)
	}

	out := make([]string, len(sheet.Rows))
	for i, r := range sheet.Rows {
		if col < len(r) {
			out[i] = strings.TrimSpace(r[col])
		}
	}
	return out, nil
}

// ClearCache 清空取值缓存。工作簿被替换或重载时必须调用。
func (w *Workbook) ClearCache() {
	w.cache = make(map[string]string)
}

// Name 数据源文件名（不含目录）
func (w *Workbook) Name() string {
	return filepath.Base(w.Path)
}
