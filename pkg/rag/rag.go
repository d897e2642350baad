// Package rag 检索增强问答服务的客户端
package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"teamflow/pkg/logger"

	"go.uber.org/zap"
)

// Source 答案引用的文档片段
type Source struct {
	File    string `json:"file"`
	Content string `json:"content"`
}

// Answer 问答结果
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Client 文本入库与问答
type Client interface {
	Ingest(ctx context.Context, text string, metadata map[string]string) bool
	Answer(ctx context.Context, question string) (*Answer, error)
}

// textExtensions 会被送去向量化的文本类扩展名
var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".py": true, ".js": true, ".html": true, ".css": true,
}

// IsText 判断文件是否按文本入库
func IsText(fileName, contentType string) bool {
	if strings.HasPrefix(contentType, "text/") {
		return true
	}
	return textExtensions[strings.ToLower(filepath.Ext(fileName))]
}

// HTTPClient 通过 HTTP 调用外部 RAG 服务
// POST {endpoint}/ingest {"texts":[...],"metadatas":[...]}
// POST {endpoint}/query  {"question":"..."}
type HTTPClient struct {
	endpoint string
	http     *http.Client
}

// NewHTTPClient 创建客户端
func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: timeout},
	}
}

type ingestRequest struct {
	Texts     []string            `json:"texts"`
	Metadatas []map[string]string `json:"metadatas"`
}

type ingestResponse struct {
	Success bool `json:"success"`
}

// Ingest 入库，任何失败都返回 false
func (c *HTTPClient) Ingest(ctx context.Context, text string, metadata map[string]string) bool {
	var resp ingestResponse
	err := c.post(ctx, "/ingest", ingestRequest{
		Texts:     []string{text},
		Metadatas: []map[string]string{metadata},
	}, &resp)
	if err != nil {
		logger.Warn("RAG入库失败", zap.String("source", metadata["source"]), zap.Error(err))
		return false
	}
	return resp.Success
}

// Answer 问答
func (c *HTTPClient) Answer(ctx context.Context, question string) (*Answer, error) {
	var answer Answer
	if err := c.post(ctx, "/query", map[string]string{"question": question}, &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rag %s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
