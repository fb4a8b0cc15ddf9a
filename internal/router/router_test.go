package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"report-go/internal/config"
	"report-go/internal/models"
	"report-go/internal/storage"
	"report-go/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{
			MaxFileSize: 10 << 20,
		},
		Converter: config.ConverterConfig{
			Engine:  "native",
			MaxRows: 100,
			MaxCols: 20,
		},
		Session: config.SessionConfig{
			Secret:     "test-session-secret",
			CookieName: "report_session",
			MaxAgeDays: 1,
		},
		JWT: config.JWTConfig{
			SecretKey:     "test-jwt-secret",
			Algorithm:     "HS256",
			ExpireMinutes: 60,
		},
	}
}

func setupTestRouter(t *testing.T) *gin.Engine {
	return setupRouterWithConfig(t, testConfig())
}

func setupRouterWithConfig(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Report{}))

	blobStore, err := storage.NewBlobStorage(t.TempDir())
	require.NoError(t, err)

	jwtManager := utils.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Algorithm, cfg.JWT.GetExpireDuration())

	log := logrus.New()
	log.SetOutput(io.Discard)

	return SetupRouter(cfg, jwtManager, log, db, nil, blobStore)
}

func doJSON(r *gin.Engine, method, path string, payload interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// registerAndLogin 注册并登录测试用户,返回会话Cookie和访问令牌
func registerAndLogin(t *testing.T, r *gin.Engine) ([]*http.Cookie, string) {
	t.Helper()

	w := doJSON(r, "POST", "/api/user/register", gin.H{
		"name": "测试用户", "email": "test@example.com", "password": "secret123",
	}, nil)
	require.Equal(t, 201, w.Code)

	w = doJSON(r, "POST", "/api/user/login", gin.H{
		"email": "test@example.com", "password": "secret123",
	}, nil)
	require.Equal(t, 200, w.Code)

	var resp struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.AccessToken)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies, resp.Data.AccessToken
}

func sampleXLSX(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "季度"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "营收"))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())
	return buf.Bytes()
}

// postReport 以multipart表单提交报表
func postReport(t *testing.T, r *gin.Engine, method, path, name string, file []byte, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("name", name))
	if file != nil {
		part, err := writer.CreateFormFile("file", "report.xlsx")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterDuplicateEmail(t *testing.T) {
	r := setupTestRouter(t)

	payload := gin.H{"name": "用户", "email": "dup@example.com", "password": "secret123"}
	w := doJSON(r, "POST", "/api/user/register", payload, nil)
	assert.Equal(t, 201, w.Code)

	w = doJSON(r, "POST", "/api/user/register", payload, nil)
	assert.Equal(t, 409, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	r := setupTestRouter(t)

	// 密码过短
	w := doJSON(r, "POST", "/api/user/register", gin.H{
		"name": "用户", "email": "a@example.com", "password": "123",
	}, nil)
	assert.Equal(t, 400, w.Code)

	// 邮箱格式错误
	w = doJSON(r, "POST", "/api/user/register", gin.H{
		"name": "用户", "email": "not-an-email", "password": "secret123",
	}, nil)
	assert.Equal(t, 400, w.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	r := setupTestRouter(t)
	registerAndLogin(t, r)

	w := doJSON(r, "POST", "/api/user/login", gin.H{
		"email": "test@example.com", "password": "wrong-password",
	}, nil)
	assert.Equal(t, 401, w.Code)

	w = doJSON(r, "POST", "/api/user/login", gin.H{
		"email": "nobody@example.com", "password": "secret123",
	}, nil)
	assert.Equal(t, 401, w.Code)
}

func TestReportsRequireAuth(t *testing.T) {
	r := setupTestRouter(t)

	w := doJSON(r, "GET", "/api/reports", nil, nil)
	assert.Equal(t, 401, w.Code)
}

func TestBearerTokenAuth(t *testing.T) {
	r := setupTestRouter(t)
	_, token := registerAndLogin(t, r)

	req := httptest.NewRequest("GET", "/api/reports", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, 200, w.Code)
}

func TestReportCRUDStatusCodes(t *testing.T) {
	r := setupTestRouter(t)
	cookies, _ := registerAndLogin(t, r)
	xlsx := sampleXLSX(t)

	// 创建: 201 + Location
	w := postReport(t, r, "POST", "/api/reports", "月度报表", xlsx, cookies)
	require.Equal(t, 201, w.Code)
	assert.Equal(t, "/api/reports/1", w.Header().Get("Location"))

	// 缺少文件: 400
	w = postReport(t, r, "POST", "/api/reports", "没有文件", nil, cookies)
	assert.Equal(t, 400, w.Code)

	// 缺少名称: 400
	w = postReport(t, r, "POST", "/api/reports", "", xlsx, cookies)
	assert.Equal(t, 400, w.Code)

	// 查询: 200
	w = doJSON(r, "GET", "/api/reports/1", nil, cookies)
	assert.Equal(t, 200, w.Code)

	// 不存在: 404
	w = doJSON(r, "GET", "/api/reports/999", nil, cookies)
	assert.Equal(t, 404, w.Code)

	// 更新名称: 200
	w = postReport(t, r, "PUT", "/api/reports/1", "改名后的报表", nil, cookies)
	assert.Equal(t, 200, w.Code)

	// 删除: 204,再删: 404
	w = doJSON(r, "DELETE", "/api/reports/1", nil, cookies)
	assert.Equal(t, 204, w.Code)
	w = doJSON(r, "DELETE", "/api/reports/1", nil, cookies)
	assert.Equal(t, 404, w.Code)
}

func TestUploadSizeLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.MaxFileSize = 64 // 比任何真实xlsx都小
	r := setupRouterWithConfig(t, cfg)
	cookies, _ := registerAndLogin(t, r)

	w := postReport(t, r, "POST", "/api/reports", "超大文件", sampleXLSX(t), cookies)
	assert.Equal(t, 400, w.Code)
	assert.Contains(t, w.Body.String(), "大小限制")
}

func TestDownloadAndConvertContentTypes(t *testing.T) {
	r := setupTestRouter(t)
	cookies, _ := registerAndLogin(t, r)

	w := postReport(t, r, "POST", "/api/reports", "内容类型测试", sampleXLSX(t), cookies)
	require.Equal(t, 201, w.Code)

	w = doJSON(r, "GET", "/api/reports/1/download", nil, cookies)
	require.Equal(t, 200, w.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		w.Header().Get("Content-Type"))
	// 下载文件名用报表名而不是存储用的uuid名
	disposition := w.Header().Get("Content-Disposition")
	assert.Contains(t, disposition, "attachment")
	assert.Contains(t, disposition, url.PathEscape("内容类型测试")+".xlsx")

	w = doJSON(r, "GET", "/api/reports/1/convert-to-word", nil, cookies)
	require.Equal(t, 200, w.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		w.Header().Get("Content-Type"))
	assert.NotZero(t, w.Body.Len())
}

func TestPreviewEndpoint(t *testing.T) {
	r := setupTestRouter(t)
	cookies, _ := registerAndLogin(t, r)

	w := postReport(t, r, "POST", "/api/reports", "预览测试", sampleXLSX(t), cookies)
	require.Equal(t, 201, w.Code)

	w = doJSON(r, "GET", "/api/reports/1/preview", nil, cookies)
	require.Equal(t, 200, w.Code)

	var resp struct {
		Data struct {
			Worksheets []struct {
				Name string     `json:"name"`
				Rows [][]string `json:"rows"`
			} `json:"worksheets"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Worksheets, 1)
	assert.Equal(t, "Sheet1", resp.Data.Worksheets[0].Name)
	assert.Equal(t, []string{"季度", "营收"}, resp.Data.Worksheets[0].Rows[0])
}

func TestUserAccessControl(t *testing.T) {
	r := setupTestRouter(t)
	cookies, _ := registerAndLogin(t, r)

	// 查看自己: 200
	w := doJSON(r, "GET", "/api/user/1", nil, cookies)
	assert.Equal(t, 200, w.Code)

	// 注册第二个用户
	w = doJSON(r, "POST", "/api/user/register", gin.H{
		"name": "另一个用户", "email": "other@example.com", "password": "secret123",
	}, nil)
	require.Equal(t, 201, w.Code)

	// 非管理员查看他人: 403
	w = doJSON(r, "GET", "/api/user/2", nil, cookies)
	assert.Equal(t, 403, w.Code)

	// 非管理员改角色: 403
	w = doJSON(r, "PUT", "/api/user/1", gin.H{"role": "admin"}, cookies)
	assert.Equal(t, 403, w.Code)

	// 改自己的名称: 200
	w = doJSON(r, "PUT", "/api/user/1", gin.H{"name": "新名字"}, cookies)
	assert.Equal(t, 200, w.Code)
}

func TestAdminUserListing(t *testing.T) {
	r := setupTestRouter(t)
	cookies, _ := registerAndLogin(t, r)

	// 普通用户: 403
	w := doJSON(r, "GET", "/api/user", nil, cookies)
	assert.Equal(t, 403, w.Code)
}

func TestLogoutInvalidatesSession(t *testing.T) {
	r := setupTestRouter(t)
	cookies, _ := registerAndLogin(t, r)

	w := doJSON(r, "POST", "/api/user/logout", nil, cookies)
	require.Equal(t, 200, w.Code)

	// 登出响应会下发过期的Cookie,换用新Cookie后访问应为401
	expired := w.Result().Cookies()
	w = doJSON(r, "GET", "/api/reports", nil, expired)
	assert.Equal(t, 401, w.Code)
}

func TestInvalidIDReturns400(t *testing.T) {
	r := setupTestRouter(t)
	cookies, _ := registerAndLogin(t, r)

	for _, path := range []string{"/api/reports/abc", "/api/reports/0"} {
		w := doJSON(r, "GET", path, nil, cookies)
		assert.Equal(t, 400, w.Code, fmt.Sprintf("path=%s", path))
	}
}
