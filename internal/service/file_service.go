package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"teamflow/pkg/logger"
	"teamflow/pkg/rag"

	"go.uber.org/zap"
)

// UploadedFile 待保存的文件
type UploadedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// RAGQueryResult 问答结果
type RAGQueryResult struct {
	Response  string      `json:"response"`
	RawResult *rag.Answer `json:"raw_result"`
}

// IngestResult 批量入库结果
type IngestResult struct {
	Message         string   `json:"message"`
	SuccessfulFiles []string `json:"successful_files"`
	FailedFiles     []string `json:"failed_files"`
}

// FileService 附件保存与知识库入库；rag 为空时文本文件标记为 skipped
type FileService struct {
	sink    FileSink
	rag     rag.Client
	allowed map[string]bool
	maxSize int64
}

func NewFileService(sink FileSink, ragClient rag.Client, allowedExtensions []string, maxSize int64) *FileService {
	allowed := make(map[string]bool, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return &FileService{sink: sink, rag: ragClient, allowed: allowed, maxSize: maxSize}
}

// DecodeDataURL 解析 "data:<mime>;base64,<payload>"，也接受纯 base64
func DecodeDataURL(s string) ([]byte, string, error) {
	contentType := ""
	payload := s
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 {
			return nil, "", validation("Invalid file data")
		}
		meta := s[len("data:"):comma]
		payload = s[comma+1:]
		if !strings.HasSuffix(meta, ";base64") {
			return nil, "", validation("Invalid file data")
		}
		contentType = strings.TrimSuffix(meta, ";base64")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", validation("Invalid file data")
	}
	return data, contentType, nil
}

// Store 校验扩展名与大小后落盘；文本文件送入知识库
func (s *FileService) Store(ctx context.Context, f UploadedFile, uploader, channel string) (*Attachment, error) {
	name := filepath.Base(strings.TrimSpace(f.Name))
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if name == "" || name == "." || !s.allowed[ext] {
		return nil, validation("File type not allowed")
	}
	if s.maxSize > 0 && int64(len(f.Data)) > s.maxSize {
		return nil, validation("File is too large")
	}

	contentType := f.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(f.Data)
	}

	ref, err := s.sink.Save(name, bytes.NewReader(f.Data))
	if err != nil {
		logger.Error("保存上传文件失败", zap.String("file", name), zap.Error(err))
		return nil, persistence("Failed to save file", err)
	}

	return &Attachment{
		Name:            name,
		Ref:             ref,
		Type:            contentType,
		EmbeddingStatus: s.embed(ctx, name, contentType, f.Data, uploader, channel),
	}, nil
}

// Discard 删除已保存但未能关联到消息的文件
func (s *FileService) Discard(a *Attachment) {
	if a == nil {
		return
	}
	if err := s.sink.Remove(a.Ref); err != nil {
		logger.Warn("清理上传文件失败", zap.String("ref", a.Ref), zap.Error(err))
	}
}

func (s *FileService) embed(ctx context.Context, name, contentType string, data []byte, uploader, channel string) string {
	if !rag.IsText(name, contentType) || s.rag == nil {
		return "skipped"
	}
	if !utf8.Valid(data) || len(bytes.TrimSpace(data)) == 0 {
		return "failed"
	}
	ok := s.rag.Ingest(ctx, string(data), map[string]string{
		"source":       name,
		"channel":      channel,
		"uploader":     uploader,
		"content_type": contentType,
	})
	if !ok {
		return "failed"
	}
	return "success"
}

// Ingest 直接入库若干文本文件，不落盘
func (s *FileService) Ingest(ctx context.Context, files []UploadedFile, uploader string) (*IngestResult, error) {
	if s.rag == nil {
		return nil, validation("Knowledge base is not configured")
	}
	result := &IngestResult{
		Message:         "Document ingestion complete",
		SuccessfulFiles: []string{},
		FailedFiles:     []string{},
	}
	for _, f := range files {
		if !rag.IsText(f.Name, f.ContentType) {
			result.FailedFiles = append(result.FailedFiles, f.Name+" (Unsupported file type)")
			continue
		}
		contentType := f.ContentType
		if strings.EqualFold(filepath.Ext(f.Name), ".md") {
			contentType = "text/markdown"
		}
		ok := s.rag.Ingest(ctx, string(f.Data), map[string]string{
			"source":   f.Name,
			"type":     contentType,
			"uploader": uploader,
		})
		if !ok {
			result.FailedFiles = append(result.FailedFiles, f.Name+" (Failed to add to vector store)")
			continue
		}
		result.SuccessfulFiles = append(result.SuccessfulFiles, f.Name)
	}
	return result, nil
}

// Query 知识库问答；queryType 为 documentation 时使用文档格式
func (s *FileService) Query(ctx context.Context, query, queryType string) (*RAGQueryResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validation("No query provided")
	}
	if s.rag == nil {
		return nil, validation("Knowledge base is not configured")
	}

	answer, err := s.rag.Answer(ctx, query)
	if err != nil {
		logger.Error("知识库问答失败", zap.Error(err))
		return nil, persistence("An error occurred while processing your query", err)
	}

	var b strings.Builder
	if queryType == "documentation" {
		b.WriteString("Documentation:\n\n")
		b.WriteString(answer.Answer)
		b.WriteString("\n\nSources:\n")
	} else {
		b.WriteString(answer.Answer)
		b.WriteString("\n\nRelevant Sources:\n")
	}
	for _, src := range answer.Sources {
		b.WriteString("\n- ")
		b.WriteString(src.File)
	}
	return &RAGQueryResult{Response: b.String(), RawResult: answer}, nil
}
