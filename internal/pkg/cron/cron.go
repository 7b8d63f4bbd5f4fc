package cron

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ehopn/invoice_go_server/internal/repository"
	"github.com/ehopn/invoice_go_server/internal/service"
)

type Service struct {
	subscriptionService *service.SubscriptionService
	invoiceRepo         *repository.InvoiceRepository
	uploadDir           string
	retainHours         int
	stopChan            chan struct{}
}

func NewService(
	subscriptionService *service.SubscriptionService,
	invoiceRepo *repository.InvoiceRepository,
	uploadDir string,
	retainHours int,
) *Service {
	return &Service{
		subscriptionService: subscriptionService,
		invoiceRepo:         invoiceRepo,
		uploadDir:           uploadDir,
		retainHours:         retainHours,
		stopChan:            make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runUploadCleanup()
	go s.runPendingSweep()
	log.Println("Cron service started (upload cleanup + pending sweep)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	log.Println("Cron service stopped")
}

// runUploadCleanup 每小时清理一次孤儿上传文件
func (s *Service) runUploadCleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanupOrphanUploads()
		}
	}
}

// runPendingSweep 每 6 小时回收一次超时未支付的订阅
func (s *Service) runPendingSweep() {
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweepStalePending()
		}
	}
}

// cleanupOrphanUploads 删除上传目录里超过保留期且没有任何发票引用的文件
func (s *Service) cleanupOrphanUploads() int {
	if s.uploadDir == "" {
		return 0
	}

	retainHours := s.retainHours
	if retainHours <= 0 {
		retainHours = 24
	}
	expireDuration := time.Duration(retainHours) * time.Hour

	urls, err := s.invoiceRepo.ListFileURLs()
	if err != nil {
		log.Printf("Cleanup uploads: failed to list referenced files: %v", err)
		return 0
	}
	referenced := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		referenced[filepath.Base(u)] = struct{}{}
	}

	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		log.Printf("Cleanup uploads: failed to read dir %s: %v", s.uploadDir, err)
		return 0
	}

	cleaned := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := referenced[entry.Name()]; ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if time.Since(info.ModTime()) > expireDuration {
			filePath := filepath.Join(s.uploadDir, entry.Name())
			if err := os.Remove(filePath); err != nil {
				log.Printf("Cleanup uploads: failed to remove %s: %v", filePath, err)
			} else {
				cleaned++
			}
		}
	}

	if cleaned > 0 {
		log.Printf("Cleanup uploads: removed %d orphan files", cleaned)
	}
	return cleaned
}

// sweepStalePending 把超过 24 小时仍未支付的订阅退回免费套餐
func (s *Service) sweepStalePending() {
	if s.subscriptionService == nil {
		return
	}
	released, err := s.subscriptionService.ReleaseStalePending()
	if err != nil {
		log.Printf("Pending sweep failed: %v", err)
		return
	}
	if released > 0 {
		log.Printf("Pending sweep: released %d stale subscriptions", released)
	}
}

// RunNow 立即执行一轮清理（用于测试或手动触发）
func (s *Service) RunNow() {
	s.cleanupOrphanUploads()
	s.sweepStalePending()
}
