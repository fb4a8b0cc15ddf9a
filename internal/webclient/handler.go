package webclient

import (
	"html/template"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// PageHandler 页面处理器
type PageHandler struct {
	api        *APIClient
	cookieName string
}

// NewPageHandler 创建页面处理器
func NewPageHandler(api *APIClient, cookieName string) *PageHandler {
	return &PageHandler{api: api, cookieName: cookieName}
}

// session 读取浏览器的会话Cookie,未登录时重定向到登录页
func (h *PageHandler) session(c *gin.Context) (string, bool) {
	session, err := c.Cookie(h.cookieName)
	if err != nil || session == "" {
		c.Redirect(http.StatusFound, "/auth/login")
		return "", false
	}
	return session, true
}

// pageID 解析路径中的报表ID
func pageID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.HTML(http.StatusBadRequest, "error.html", gin.H{"Message": "无效的报表ID"})
		return 0, false
	}
	return uint(id), true
}

// Index 首页重定向到报表列表
func (h *PageHandler) Index(c *gin.Context) {
	c.Redirect(http.StatusFound, "/reports")
}

// ListPage 报表列表页
func (h *PageHandler) ListPage(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	reports, err := h.api.ListReports(session)
	if err != nil {
		c.HTML(http.StatusBadGateway, "error.html", gin.H{"Message": err.Error()})
		return
	}
	c.HTML(http.StatusOK, "reports_list.html", gin.H{"Reports": reports})
}

// worksheetPage 详情页上渲染的单个工作表: 单元格网格加内嵌图片
type worksheetPage struct {
	Name   string
	Rows   [][]string
	Images []imagePage
}

type imagePage struct {
	Name string
	Src  template.URL
}

// DetailPage 报表详情页,元数据之外内联渲染工作表预览
func (h *PageHandler) DetailPage(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	id, ok := pageID(c)
	if !ok {
		return
	}

	report, err := h.api.GetReport(session, id)
	if err != nil {
		c.HTML(http.StatusNotFound, "error.html", gin.H{"Message": err.Error()})
		return
	}

	data := gin.H{"Report": report}

	// 预览失败不影响元数据展示,降级为页面内提示
	worksheets, err := h.api.Preview(session, id)
	if err != nil {
		data["PreviewError"] = err.Error()
	} else {
		pages := make([]worksheetPage, 0, len(worksheets))
		for _, ws := range worksheets {
			page := worksheetPage{Name: ws.Name, Rows: ws.Rows}
			for _, img := range ws.Images {
				// html/template默认拦截data:协议,这里的base64来自API,可信
				page.Images = append(page.Images, imagePage{
					Name: img.Name,
					Src:  template.URL("data:image/" + img.Format + ";base64," + img.Data),
				})
			}
			pages = append(pages, page)
		}
		data["Worksheets"] = pages
	}

	c.HTML(http.StatusOK, "report_detail.html", data)
}

// CreatePage 创建报表表单页
func (h *PageHandler) CreatePage(c *gin.Context) {
	if _, ok := h.session(c); !ok {
		return
	}
	c.HTML(http.StatusOK, "report_form.html", gin.H{
		"Title":  "新建报表",
		"Action": "/reports/create",
	})
}

// CreateSubmit 提交创建报表
func (h *PageHandler) CreateSubmit(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	name := c.PostForm("name")
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.HTML(http.StatusBadRequest, "report_form.html", gin.H{
			"Title": "新建报表", "Action": "/reports/create",
			"Name": name, "Error": "请选择要上传的文件",
		})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.HTML(http.StatusBadRequest, "error.html", gin.H{"Message": err.Error()})
		return
	}
	defer src.Close()

	if _, err := h.api.CreateReport(session, name, fileHeader.Filename, src); err != nil {
		c.HTML(http.StatusBadRequest, "report_form.html", gin.H{
			"Title": "新建报表", "Action": "/reports/create",
			"Name": name, "Error": err.Error(),
		})
		return
	}
	c.Redirect(http.StatusFound, "/reports")
}

// EditPage 编辑报表表单页
func (h *PageHandler) EditPage(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	id, ok := pageID(c)
	if !ok {
		return
	}

	report, err := h.api.GetReport(session, id)
	if err != nil {
		c.HTML(http.StatusNotFound, "error.html", gin.H{"Message": err.Error()})
		return
	}
	c.HTML(http.StatusOK, "report_form.html", gin.H{
		"Title":  "编辑报表",
		"Action": "/reports/" + c.Param("id") + "/edit",
		"Name":   report.Name,
		"Edit":   true,
	})
}

// EditSubmit 提交编辑报表,未选择新文件时只改名称
func (h *PageHandler) EditSubmit(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	id, ok := pageID(c)
	if !ok {
		return
	}

	name := c.PostForm("name")

	var file io.Reader
	var fileName string
	if fileHeader, err := c.FormFile("file"); err == nil && fileHeader.Size > 0 {
		src, err := fileHeader.Open()
		if err != nil {
			c.HTML(http.StatusBadRequest, "error.html", gin.H{"Message": err.Error()})
			return
		}
		defer src.Close()
		file = src
		fileName = fileHeader.Filename
	}

	if _, err := h.api.UpdateReport(session, id, name, fileName, file); err != nil {
		c.HTML(http.StatusBadRequest, "report_form.html", gin.H{
			"Title": "编辑报表", "Action": "/reports/" + c.Param("id") + "/edit",
			"Name": name, "Edit": true, "Error": err.Error(),
		})
		return
	}
	c.Redirect(http.StatusFound, "/reports")
}

// DeleteSubmit 删除报表
func (h *PageHandler) DeleteSubmit(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	id, ok := pageID(c)
	if !ok {
		return
	}

	if err := h.api.DeleteReport(session, id); err != nil {
		c.HTML(http.StatusBadGateway, "error.html", gin.H{"Message": err.Error()})
		return
	}
	c.Redirect(http.StatusFound, "/reports")
}

// DownloadPage 透传下载报表原始文件
func (h *PageHandler) DownloadPage(c *gin.Context) {
	h.streamFile(c, h.api.Download)
}

// ConvertPage 透传下载转换后的Word文档
func (h *PageHandler) ConvertPage(c *gin.Context) {
	h.streamFile(c, h.api.ConvertToWord)
}

// streamFile 把API的文件响应原样转发给浏览器
func (h *PageHandler) streamFile(c *gin.Context, fetch func(string, uint) (*http.Response, error)) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	id, ok := pageID(c)
	if !ok {
		return
	}

	resp, err := fetch(session, id)
	if err != nil {
		c.HTML(http.StatusBadGateway, "error.html", gin.H{"Message": err.Error()})
		return
	}
	defer resp.Body.Close()

	c.Header("Content-Disposition", resp.Header.Get("Content-Disposition"))
	c.DataFromReader(http.StatusOK, resp.ContentLength, resp.Header.Get("Content-Type"), resp.Body, nil)
}

// LoginPage 登录页
func (h *PageHandler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{})
}

// LoginSubmit 提交登录,成功后把API的会话Cookie转存到浏览器
func (h *PageHandler) LoginSubmit(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	session, _, err := h.api.Login(email, password)
	if err != nil {
		c.HTML(http.StatusUnauthorized, "login.html", gin.H{"Email": email, "Error": err.Error()})
		return
	}

	c.SetCookie(h.cookieName, session, 30*24*3600, "/", "", false, true)
	c.Redirect(http.StatusFound, "/reports")
}

// RegisterPage 注册页
func (h *PageHandler) RegisterPage(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", gin.H{})
}

// RegisterSubmit 提交注册,成功后跳转登录页
func (h *PageHandler) RegisterSubmit(c *gin.Context) {
	name := c.PostForm("name")
	email := c.PostForm("email")
	password := c.PostForm("password")

	if err := h.api.Register(name, email, password); err != nil {
		c.HTML(http.StatusBadRequest, "register.html", gin.H{
			"Name": name, "Email": email, "Error": err.Error(),
		})
		return
	}
	c.Redirect(http.StatusFound, "/auth/login")
}

// Logout 登出并清除浏览器Cookie
func (h *PageHandler) Logout(c *gin.Context) {
	if session, err := c.Cookie(h.cookieName); err == nil && session != "" {
		_ = h.api.Logout(session)
	}
	c.SetCookie(h.cookieName, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/auth/login")
}
