package docconv

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// WorksheetPreview 工作表预览,按请求临时构建,不持久化
type WorksheetPreview struct {
	Name   string         `json:"name"`
	Rows   [][]string     `json:"rows"`
	Images []PreviewImage `json:"images"`
}

// PreviewImage 预览中的图片,Data经JSON序列化后为base64
type PreviewImage struct {
	Name   string `json:"name"`
	Format string `json:"format"`
	Data   []byte `json:"data"`
}

// Preview 提取电子表格的工作表预览
// 单元格网格按行列上限截断,图片仅包含位图(图表不进预览)
func (cv *Converter) Preview(data []byte) ([]WorksheetPreview, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("打开电子表格失败: %w", err)
	}
	defer f.Close()

	drawingsBySheet, err := extractDrawings(data)
	if err != nil {
		return nil, fmt.Errorf("提取绘图对象失败: %w", err)
	}

	var previews []WorksheetPreview
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("读取工作表 %s 失败: %w", sheet, err)
		}

		preview := WorksheetPreview{Name: sheet}

		rowCount := len(rows)
		if rowCount > cv.opts.MaxRows {
			rowCount = cv.opts.MaxRows
		}
		for r := 0; r < rowCount; r++ {
			row := rows[r]
			if len(row) > cv.opts.MaxCols {
				row = row[:cv.opts.MaxCols]
			}
			preview.Rows = append(preview.Rows, row)
		}

		for _, drawing := range drawingsBySheet[sheet] {
			if pic, ok := drawing.(*PictureDrawing); ok {
				preview.Images = append(preview.Images, PreviewImage{
					Name:   pic.Name,
					Format: pic.Extension,
					Data:   pic.Data,
				})
			}
		}

		previews = append(previews, preview)
	}

	return previews, nil
}
