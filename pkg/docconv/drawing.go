package docconv

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

// Drawing 工作表上的绘图对象,只有图片和图表两种变体
// 密封接口保证新增变体时所有分支处理都无法通过编译
type Drawing interface {
	isDrawing()
	DrawingName() string
}

// PictureDrawing 嵌入的位图图片,原始字节直接透传
type PictureDrawing struct {
	Name      string
	Extension string
	Data      []byte
}

func (*PictureDrawing) isDrawing() {}

// DrawingName 获取绘图名称
func (p *PictureDrawing) DrawingName() string { return p.Name }

// ChartDrawing 嵌入的图表,不做真实渲染,只保留名称用于生成占位图
type ChartDrawing struct {
	Name string
}

func (*ChartDrawing) isDrawing() {}

// DrawingName 获取绘图名称
func (c *ChartDrawing) DrawingName() string { return c.Name }

const (
	relTypeDrawing = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/drawing"
	chartDataURI   = "http://schemas.openxmlformats.org/drawingml/2006/chart"
)

// rels文件结构
type relationships struct {
	Rels []relationship `xml:"Relationship"`
}

type relationship struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

// workbook.xml 中的工作表清单
type workbookXML struct {
	Sheets struct {
		Sheets []struct {
			Name string `xml:"name,attr"`
			RID  string `xml:"id,attr"`
		} `xml:"sheet"`
	} `xml:"sheets"`
}

// drawingN.xml 结构,锚点按文档顺序保留
type drawingXML struct {
	Anchors []drawingAnchor `xml:",any"`
}

type drawingAnchor struct {
	Pic   *drawingPic   `xml:"pic"`
	Frame *drawingFrame `xml:"graphicFrame"`
}

type drawingPic struct {
	NvPicPr struct {
		CNvPr struct {
			Name string `xml:"name,attr"`
		} `xml:"cNvPr"`
	} `xml:"nvPicPr"`
	BlipFill struct {
		Blip struct {
			Embed string `xml:"embed,attr"`
		} `xml:"blip"`
	} `xml:"blipFill"`
}

type drawingFrame struct {
	NvGraphicFramePr struct {
		CNvPr struct {
			Name string `xml:"name,attr"`
		} `xml:"cNvPr"`
	} `xml:"nvGraphicFramePr"`
	Graphic struct {
		GraphicData struct {
			URI string `xml:"uri,attr"`
		} `xml:"graphicData"`
	} `xml:"graphic"`
}

// extractDrawings 直接解析xlsx包中的绘图部件
// excelize不提供图表读取,因此按 工作簿rels → 工作表rels → drawing部件
// 的顺序解包,图片字节从 xl/media 取出,图表只取名称
func extractDrawings(data []byte) (map[string][]Drawing, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("打开xlsx包失败: %w", err)
	}

	parts := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("读取部件 %s 失败: %w", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("读取部件 %s 失败: %w", f.Name, err)
		}
		parts[f.Name] = b
	}

	var wb workbookXML
	if err := xml.Unmarshal(parts["xl/workbook.xml"], &wb); err != nil {
		return nil, fmt.Errorf("解析workbook.xml失败: %w", err)
	}

	wbRels, err := parseRels(parts["xl/_rels/workbook.xml.rels"])
	if err != nil {
		return nil, err
	}

	result := make(map[string][]Drawing)
	for _, sheet := range wb.Sheets.Sheets {
		sheetPart, ok := wbRels[sheet.RID]
		if !ok {
			continue
		}
		sheetPath := resolveTarget("xl", sheetPart)

		drawings, err := sheetDrawings(parts, sheetPath)
		if err != nil {
			return nil, fmt.Errorf("解析工作表 %s 的绘图失败: %w", sheet.Name, err)
		}
		result[sheet.Name] = drawings
	}

	return result, nil
}

// sheetDrawings 获取单个工作表的绘图对象,按文档顺序返回
func sheetDrawings(parts map[string][]byte, sheetPath string) ([]Drawing, error) {
	relsPath := relsPathFor(sheetPath)
	sheetRelsData, ok := parts[relsPath]
	if !ok {
		return nil, nil // 没有rels说明没有绘图
	}

	sheetRels, err := parseRelsTyped(sheetRelsData)
	if err != nil {
		return nil, err
	}

	var drawingPath string
	for _, rel := range sheetRels {
		if rel.Type == relTypeDrawing {
			drawingPath = resolveTarget(path.Dir(sheetPath), rel.Target)
			break
		}
	}
	if drawingPath == "" {
		return nil, nil
	}

	var dx drawingXML
	if err := xml.Unmarshal(parts[drawingPath], &dx); err != nil {
		return nil, fmt.Errorf("解析绘图部件失败: %w", err)
	}

	drawingRels, err := parseRels(parts[relsPathFor(drawingPath)])
	if err != nil {
		return nil, err
	}

	var drawings []Drawing
	for _, anchor := range dx.Anchors {
		switch {
		case anchor.Pic != nil:
			target, ok := drawingRels[anchor.Pic.BlipFill.Blip.Embed]
			if !ok {
				continue
			}
			mediaPath := resolveTarget(path.Dir(drawingPath), target)
			data, ok := parts[mediaPath]
			if !ok {
				continue
			}
			drawings = append(drawings, &PictureDrawing{
				Name:      anchor.Pic.NvPicPr.CNvPr.Name,
				Extension: strings.TrimPrefix(path.Ext(mediaPath), "."),
				Data:      data,
			})
		case anchor.Frame != nil:
			if anchor.Frame.Graphic.GraphicData.URI == chartDataURI {
				drawings = append(drawings, &ChartDrawing{
					Name: anchor.Frame.NvGraphicFramePr.CNvPr.Name,
				})
			}
		}
	}

	return drawings, nil
}

// parseRels 解析rels文件为 rId → Target 映射
func parseRels(data []byte) (map[string]string, error) {
	rels, err := parseRelsTyped(data)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(rels))
	for _, rel := range rels {
		m[rel.ID] = rel.Target
	}
	return m, nil
}

func parseRelsTyped(data []byte) ([]relationship, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var rels relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("解析rels失败: %w", err)
	}
	return rels.Rels, nil
}

// relsPathFor 部件对应的rels路径,如 xl/worksheets/sheet1.xml →
// xl/worksheets/_rels/sheet1.xml.rels
func relsPathFor(partPath string) string {
	return path.Join(path.Dir(partPath), "_rels", path.Base(partPath)+".rels")
}

// resolveTarget 解析rels中的相对Target路径
func resolveTarget(baseDir, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(baseDir, target)
}
