package webclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// APIClient 报表API的HTTP客户端
// 浏览器的会话Cookie由页面处理器透传给API
type APIClient struct {
	baseURL    string
	cookieName string
	httpClient *http.Client
}

// NewAPIClient 创建API客户端
func NewAPIClient(baseURL, cookieName string) *APIClient {
	return &APIClient{
		baseURL:    baseURL,
		cookieName: cookieName,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// envelope API统一响应格式
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// ReportView 报表视图数据
type ReportView struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	FileName  string `json:"file_name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// UserView 用户视图数据
type UserView struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// loginData 登录响应数据
type loginData struct {
	AccessToken string   `json:"access_token"`
	User        UserView `json:"user"`
}

// newRequest 构建请求并附加会话Cookie
func (a *APIClient) newRequest(method, path, session string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequest(method, a.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if session != "" {
		req.AddCookie(&http.Cookie{Name: a.cookieName, Value: session})
	}
	return req, nil
}

// doJSON 执行请求并解析统一响应格式
func (a *APIClient) doJSON(method, path, session string, body io.Reader, contentType string, out interface{}) error {
	req, err := a.newRequest(method, path, session, body, contentType)
	if err != nil {
		return err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求API失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("解析API响应失败: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s", env.Message)
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("解析响应数据失败: %w", err)
		}
	}
	return nil
}

// Login 登录,返回API下发的会话Cookie值
func (a *APIClient) Login(email, password string) (string, *UserView, error) {
	payload, _ := json.Marshal(map[string]string{"email": email, "password": password})

	req, err := a.newRequest("POST", "/api/user/login", "", bytes.NewReader(payload), "application/json")
	if err != nil {
		return "", nil, err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("请求API失败: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", nil, fmt.Errorf("解析API响应失败: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", nil, fmt.Errorf("%s", env.Message)
	}

	var data loginData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", nil, fmt.Errorf("解析登录数据失败: %w", err)
	}

	// 从Set-Cookie中取出会话Cookie,转存到浏览器
	for _, ck := range resp.Cookies() {
		if ck.Name == a.cookieName {
			return ck.Value, &data.User, nil
		}
	}
	return "", nil, fmt.Errorf("API未返回会话Cookie")
}

// Register 注册用户
func (a *APIClient) Register(name, email, password string) error {
	payload, _ := json.Marshal(map[string]string{"name": name, "email": email, "password": password})
	return a.doJSON("POST", "/api/user/register", "", bytes.NewReader(payload), "application/json", nil)
}

// Logout 登出
func (a *APIClient) Logout(session string) error {
	return a.doJSON("POST", "/api/user/logout", session, nil, "", nil)
}

// ListReports 获取报表列表
func (a *APIClient) ListReports(session string) ([]ReportView, error) {
	var reports []ReportView
	if err := a.doJSON("GET", "/api/reports", session, nil, "", &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// GetReport 获取单个报表
func (a *APIClient) GetReport(session string, id uint) (*ReportView, error) {
	var report ReportView
	if err := a.doJSON("GET", fmt.Sprintf("/api/reports/%d", id), session, nil, "", &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// WorksheetView 工作表预览视图数据
type WorksheetView struct {
	Name   string      `json:"name"`
	Rows   [][]string  `json:"rows"`
	Images []ImageView `json:"images"`
}

// ImageView 预览中的图片,Data为base64编码
type ImageView struct {
	Name   string `json:"name"`
	Format string `json:"format"`
	Data   string `json:"data"`
}

// Preview 获取报表的工作表预览
func (a *APIClient) Preview(session string, id uint) ([]WorksheetView, error) {
	var data struct {
		Worksheets []WorksheetView `json:"worksheets"`
	}
	if err := a.doJSON("GET", fmt.Sprintf("/api/reports/%d/preview", id), session, nil, "", &data); err != nil {
		return nil, err
	}
	return data.Worksheets, nil
}

// multipartBody 构建name+file的multipart请求体
func multipartBody(name, fileName string, file io.Reader) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("name", name); err != nil {
		return nil, "", err
	}
	if file != nil {
		part, err := writer.CreateFormFile("file", fileName)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, file); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

// CreateReport 创建报表
func (a *APIClient) CreateReport(session, name, fileName string, file io.Reader) (*ReportView, error) {
	body, contentType, err := multipartBody(name, fileName, file)
	if err != nil {
		return nil, err
	}

	var report ReportView
	if err := a.doJSON("POST", "/api/reports", session, body, contentType, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// UpdateReport 更新报表,file为nil时只改名称
func (a *APIClient) UpdateReport(session string, id uint, name, fileName string, file io.Reader) (*ReportView, error) {
	body, contentType, err := multipartBody(name, fileName, file)
	if err != nil {
		return nil, err
	}

	var report ReportView
	if err := a.doJSON("PUT", fmt.Sprintf("/api/reports/%d", id), session, body, contentType, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// DeleteReport 删除报表
func (a *APIClient) DeleteReport(session string, id uint) error {
	return a.doJSON("DELETE", fmt.Sprintf("/api/reports/%d", id), session, nil, "", nil)
}

// Download 下载报表原始文件,调用方负责关闭Body
func (a *APIClient) Download(session string, id uint) (*http.Response, error) {
	return a.rawGet(session, fmt.Sprintf("/api/reports/%d/download", id))
}

// ConvertToWord 下载转换后的Word文档,调用方负责关闭Body
func (a *APIClient) ConvertToWord(session string, id uint) (*http.Response, error) {
	return a.rawGet(session, fmt.Sprintf("/api/reports/%d/convert-to-word", id))
}

// rawGet 执行GET并原样返回响应(用于文件流)
func (a *APIClient) rawGet(session, path string) (*http.Response, error) {
	req, err := a.newRequest("GET", path, session, nil, "")
	if err != nil {
		return nil, err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求API失败: %w", err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Message != "" {
			return nil, fmt.Errorf("%s", env.Message)
		}
		return nil, fmt.Errorf("API返回状态码 %d", resp.StatusCode)
	}
	return resp, nil
}
