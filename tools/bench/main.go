package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// -------------------- 统计 --------------------

type LatencyStats struct {
	mu        sync.Mutex
	latencies []time.Duration
	failed    int
}

func (s *LatencyStats) Add(latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latencies = append(s.latencies, latency)
}

func (s *LatencyStats) Fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
}

func (s *LatencyStats) Report(took time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Println("\n=== WebSocket 压测结果 ===")
	fmt.Printf("耗时: %v\n", took)
	fmt.Printf("成功: %d 失败: %d\n", len(s.latencies), s.failed)
	if len(s.latencies) == 0 {
		return
	}
	sort.Slice(s.latencies, func(i, j int) bool { return s.latencies[i] < s.latencies[j] })
	var sum time.Duration
	for _, l := range s.latencies {
		sum += l
	}
	pct := func(p float64) time.Duration {
		return s.latencies[int(float64(len(s.latencies)-1)*p)]
	}
	fmt.Printf("延迟 平均: %v P50: %v P95: %v P99: %v 最大: %v\n",
		sum/time.Duration(len(s.latencies)), pct(0.50), pct(0.95), pct(0.99), s.latencies[len(s.latencies)-1])
	if took > 0 {
		fmt.Printf("吞吐: %.2f msg/s\n", float64(len(s.latencies))/took.Seconds())
	}
}

// -------------------- HTTP 账号 --------------------

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func postJSON(client *http.Client, u string, body interface{}) (*apiResponse, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	resp, err := client.Post(u, "application/json", bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Code != 0 {
		return &out, fmt.Errorf("%s", out.Message)
	}
	return &out, nil
}

// obtainToken 登录，账号不存在时先注册
func obtainToken(client *http.Client, base, username string) (string, error) {
	const password = "bench-password"
	resp, err := postJSON(client, base+"/api/v1/users/login", map[string]string{
		"usernameOrEmail": username,
		"password":        password,
	})
	if err != nil {
		resp, err = postJSON(client, base+"/api/v1/users/register", map[string]string{
			"username": username,
			"email":    username + "@bench.local",
			"password": password,
		})
		if err != nil {
			return "", err
		}
	}
	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return "", err
	}
	return data.AccessToken, nil
}

// -------------------- WebSocket 客户端 --------------------

type event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	Seq  int64           `json:"seq"`
}

func wsURL(base, token string) string {
	u := strings.Replace(base, "http", "ws", 1) + "/ws?token=" + url.QueryEscape(token)
	return u
}

// runClient 加入默认频道并顺序发送消息，以收到自己消息的回显计算延迟
func runClient(base, token, channelName string, messages int, stats *LatencyStats) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(base, token), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	var channelID uint
	var userID uint
	for channelID == 0 || userID == 0 {
		var ev event
		if err := conn.ReadJSON(&ev); err != nil {
			return err
		}
		switch ev.Type {
		case "current_user":
			var u struct {
				UserID uint `json:"user_id"`
			}
			_ = json.Unmarshal(ev.Data, &u)
			userID = u.UserID
		case "channel_list":
			var list struct {
				Channels []struct {
					ID   uint   `json:"id"`
					Name string `json:"name"`
				} `json:"channels"`
			}
			_ = json.Unmarshal(ev.Data, &list)
			for _, c := range list.Channels {
				if c.Name == channelName {
					channelID = c.ID
				}
			}
			if channelID == 0 {
				return fmt.Errorf("channel %q not found", channelName)
			}
		}
	}

	if err := conn.WriteJSON(map[string]interface{}{"type": "join", "data": map[string]uint{"channel": channelID}}); err != nil {
		return err
	}

	for i := 0; i < messages; i++ {
		content := fmt.Sprintf("bench %d %d", userID, i)
		start := time.Now()
		err := conn.WriteJSON(map[string]interface{}{
			"type": "message",
			"data": map[string]interface{}{"content": content, "channel_id": channelID},
		})
		if err != nil {
			return err
		}
		if err := awaitEcho(conn, content); err != nil {
			stats.Fail()
			continue
		}
		stats.Add(time.Since(start))
	}
	return nil
}

func awaitEcho(conn *websocket.Conn, content string) error {
	deadline := time.Now().Add(10 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})

	for {
		var ev event
		if err := conn.ReadJSON(&ev); err != nil {
			return err
		}
		switch ev.Type {
		case "error":
			return fmt.Errorf("server error: %s", ev.Data)
		case "message":
			var m struct {
				Content string `json:"content"`
			}
			if json.Unmarshal(ev.Data, &m) == nil && m.Content == content {
				return nil
			}
		}
	}
}

// -------------------- 入口 --------------------

func main() {
	base := flag.String("base", "http://localhost:8080", "服务地址")
	clients := flag.Int("clients", 20, "并发连接数")
	messages := flag.Int("messages", 50, "每个连接发送的消息数")
	channel := flag.String("channel", "General", "压测频道")
	flag.Parse()

	fmt.Println("=== TeamFlow WebSocket 压测 ===")
	fmt.Printf("开始时间: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Printf("目标: %s 连接: %d 每连接消息: %d\n", *base, *clients, *messages)

	httpClient := &http.Client{Timeout: 10 * time.Second}
	tokens := make([]string, 0, *clients)
	for i := 0; i < *clients; i++ {
		token, err := obtainToken(httpClient, *base, fmt.Sprintf("bench_user_%d", i))
		if err != nil {
			fmt.Println("获取token失败:", err)
			os.Exit(1)
		}
		tokens = append(tokens, token)
	}

	stats := &LatencyStats{}
	var wg sync.WaitGroup
	start := time.Now()
	for _, token := range tokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			if err := runClient(*base, token, *channel, *messages, stats); err != nil {
				fmt.Println("连接异常:", err)
			}
		}(token)
	}
	wg.Wait()

	stats.Report(time.Since(start))
	fmt.Println("\n=== 测试完成 ===")
}
