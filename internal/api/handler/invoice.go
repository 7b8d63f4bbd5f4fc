package handler

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ehopn/invoice_go_server/config"
	"github.com/ehopn/invoice_go_server/internal/api/middleware"
	"github.com/ehopn/invoice_go_server/internal/model/dto"
	"github.com/ehopn/invoice_go_server/internal/pkg/doctext"
	"github.com/ehopn/invoice_go_server/internal/pkg/oss"
	"github.com/ehopn/invoice_go_server/internal/pkg/response"
	"github.com/ehopn/invoice_go_server/internal/service"
)

type InvoiceHandler struct {
	invoiceService *service.InvoiceService
	ossClient      *oss.Client // 可选，未配置时文件只存本地
	cfg            *config.Config
}

func NewInvoiceHandler(invoiceService *service.InvoiceService, ossClient *oss.Client, cfg *config.Config) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		ossClient:      ossClient,
		cfg:            cfg,
	}
}

// List 当前用户的发票列表，按创建时间倒序
// GET /api/v1/invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	invoices, err := h.invoiceService.List(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, invoices)
}

// Get 单张发票详情
// GET /api/v1/invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "Invalid invoice id")
		return
	}

	invoice, err := h.invoiceService.Get(id, userID)
	if err != nil {
		if errors.Is(err, service.ErrInvoiceNotFound) {
			response.NotFoundError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, invoice)
}

// Create 手工录入发票
// POST /api/v1/invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	invoice, err := h.invoiceService.Create(userID, &req)
	if err != nil {
		h.writeInvoiceError(c, err)
		return
	}

	response.Created(c, invoice)
}

// Upload 上传发票文件并抽取字段，返回给客户端核对。
// 这一步不落库，客户端确认后再 POST /invoices 保存。
// POST /api/v1/invoices/upload
func (h *InvoiceHandler) Upload(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.ParamError(c, "Please select a file")
		return
	}

	if file.Size > h.cfg.Upload.MaxSize {
		response.ParamError(c, fmt.Sprintf("File too large, maximum %dMB", h.cfg.Upload.MaxSize/(1024*1024)))
		return
	}

	mime := file.Header.Get("Content-Type")
	if !doctext.IsSupportedMIME(mime) {
		response.ParamError(c, "Unsupported file type, use PDF, JPG, PNG or Excel")
		return
	}

	if err := os.MkdirAll(h.cfg.Upload.Dir, 0755); err != nil {
		response.ServerError(c, "Failed to save file")
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	filename := fmt.Sprintf("%d-%d%s", userID, time.Now().UnixNano(), ext)
	localPath := filepath.Join(h.cfg.Upload.Dir, filename)

	if err := c.SaveUploadedFile(file, localPath); err != nil {
		response.ServerError(c, "Failed to save file")
		return
	}

	fileURL := "/uploads/" + filename
	if h.ossClient != nil {
		// 配置了对象存储就把原件归档到 OSS
		if data, readErr := os.ReadFile(localPath); readErr == nil {
			if remoteURL, ossErr := h.ossClient.UploadInvoiceFile(userID, data, ext); ossErr == nil {
				fileURL = remoteURL
			}
		}
	}

	result, err := h.invoiceService.Upload(c.Request.Context(), localPath, mime, fileURL)
	if err != nil {
		os.Remove(localPath)
		// 兜底字段随错误返回，客户端愿意的话可以手工接着填
		response.ErrorWithData(c, http.StatusInternalServerError, err.Error(), result)
		return
	}

	response.SuccessWithMessage(c, "Invoice data extracted successfully. Please review and save.", result)
}

// Update 修改发票字段
// PUT /api/v1/invoices/:id
func (h *InvoiceHandler) Update(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "Invalid invoice id")
		return
	}

	var req dto.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	invoice, err := h.invoiceService.Update(id, userID, &req)
	if err != nil {
		h.writeInvoiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Invoice updated", invoice)
}

// Delete 删除发票
// DELETE /api/v1/invoices/:id
func (h *InvoiceHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "Invalid invoice id")
		return
	}

	if err := h.invoiceService.Delete(id, userID); err != nil {
		if errors.Is(err, service.ErrInvoiceNotFound) {
			response.NotFoundError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "Invoice deleted", nil)
}

func (h *InvoiceHandler) writeInvoiceError(c *gin.Context, err error) {
	var limitErr *service.ErrLimitReached
	switch {
	case errors.As(err, &limitErr):
		response.LimitError(c, err.Error())
	case errors.Is(err, service.ErrInvoiceNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrInvalidDate), errors.Is(err, service.ErrInvalidAmount):
		response.ParamError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}
