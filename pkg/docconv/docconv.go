// Package docconv 实现电子表格到Word文档的转换
// 输入xlsx字节,输出docx字节,逐工作表生成 标题段落+边框表格+绘图+分页符
package docconv

import (
	"bytes"
	"context"
	"fmt"

	"github.com/fumiama/go-docx"
	"github.com/xuri/excelize/v2"
)

// Engine 转换引擎接口,native与soffice两种实现
type Engine interface {
	Convert(ctx context.Context, data []byte) ([]byte, error)
}

// Options 转换器配置
// 显式传入,不依赖任何包级全局状态
type Options struct {
	// MaxRows/MaxCols 表格提取上限,超出部分静默丢弃,
	// 防止超大工作表耗尽内存
	MaxRows int
	MaxCols int
	// ImageCx/ImageCy 图片在文档中的固定显示尺寸(EMU)
	ImageCx int64
	ImageCy int64
	// ChartWidth/ChartHeight 图表占位图的像素尺寸
	ChartWidth  int
	ChartHeight int
}

// DefaultOptions 默认转换配置
func DefaultOptions() Options {
	return Options{
		MaxRows:     100,
		MaxCols:     20,
		ImageCx:     5000000,
		ImageCy:     3000000,
		ChartWidth:  800,
		ChartHeight: 600,
	}
}

// Converter 进程内转换器
type Converter struct {
	opts Options
}

// NewConverter 创建转换器
func NewConverter(opts Options) *Converter {
	def := DefaultOptions()
	if opts.MaxRows <= 0 {
		opts.MaxRows = def.MaxRows
	}
	if opts.MaxCols <= 0 {
		opts.MaxCols = def.MaxCols
	}
	if opts.ImageCx <= 0 {
		opts.ImageCx = def.ImageCx
	}
	if opts.ImageCy <= 0 {
		opts.ImageCy = def.ImageCy
	}
	if opts.ChartWidth <= 0 {
		opts.ChartWidth = def.ChartWidth
	}
	if opts.ChartHeight <= 0 {
		opts.ChartHeight = def.ChartHeight
	}
	return &Converter{opts: opts}
}

// Convert 将电子表格转换为Word文档
func (cv *Converter) Convert(ctx context.Context, data []byte) ([]byte, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("打开电子表格失败: %w", err)
	}
	defer f.Close()

	drawingsBySheet, err := extractDrawings(data)
	if err != nil {
		return nil, fmt.Errorf("提取绘图对象失败: %w", err)
	}

	doc := docx.New().WithDefaultTheme()

	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("读取工作表 %s 失败: %w", sheet, err)
		}
		// 空工作表整体跳过
		if len(rows) == 0 {
			continue
		}

		// 工作表标题
		doc.AddParagraph().AddText(sheet).Size("32").Bold()

		cv.appendTable(doc, rows)

		for _, drawing := range drawingsBySheet[sheet] {
			// 单个绘图失败不终止整个转换,降级为内联错误说明
			if err := cv.appendDrawing(doc, drawing); err != nil {
				doc.AddParagraph().AddText(
					fmt.Sprintf("[绘图 %s 转换失败: %v]", drawing.DrawingName(), err))
			}
		}

		// 分页符
		doc.AddParagraph().AddPageBreaks()
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("生成Word文档失败: %w", err)
	}
	return buf.Bytes(), nil
}

// appendTable 生成带边框的表格,行列按上限截断
func (cv *Converter) appendTable(doc *docx.Docx, rows [][]string) {
	rowCount := len(rows)
	if rowCount > cv.opts.MaxRows {
		rowCount = cv.opts.MaxRows
	}

	colCount := 0
	for r := 0; r < rowCount; r++ {
		if len(rows[r]) > colCount {
			colCount = len(rows[r])
		}
	}
	if colCount > cv.opts.MaxCols {
		colCount = cv.opts.MaxCols
	}
	if colCount == 0 {
		colCount = 1
	}

	table := doc.AddTable(rowCount, colCount, 8640, nil)
	for r := 0; r < rowCount; r++ {
		for c := 0; c < colCount; c++ {
			text := ""
			if c < len(rows[r]) {
				text = rows[r][c]
			}
			table.TableRows[r].TableCells[c].AddParagraph().AddText(text)
		}
	}
}

// appendDrawing 将单个绘图对象写入文档
// 图片原样嵌入,图表生成占位图,穷举处理全部变体
func (cv *Converter) appendDrawing(doc *docx.Docx, drawing Drawing) error {
	var imgData []byte
	var err error

	switch d := drawing.(type) {
	case *PictureDrawing:
		imgData = d.Data
	case *ChartDrawing:
		imgData, err = renderChartPlaceholder(d.Name, cv.opts.ChartWidth, cv.opts.ChartHeight)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("未知的绘图类型 %T", drawing)
	}

	run, err := doc.AddParagraph().AddInlineDrawing(imgData)
	if err != nil {
		return fmt.Errorf("嵌入图片失败: %w", err)
	}
	setDrawingExtent(run, cv.opts.ImageCx, cv.opts.ImageCy)
	return nil
}

// setDrawingExtent 将内嵌图片固定为统一显示尺寸(EMU)
func setDrawingExtent(run *docx.Run, cx, cy int64) {
	for _, child := range run.Children {
		d, ok := child.(*docx.Drawing)
		if !ok || d.Inline == nil {
			continue
		}
		if d.Inline.Extent != nil {
			d.Inline.Extent.CX = cx
			d.Inline.Extent.CY = cy
		}
	}
}
