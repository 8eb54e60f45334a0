package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

// 对运行中的 habit-server 做一遍冒烟测试
func main() {
	baseURL := flag.String("base", "http://localhost:7789", "server base url")
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}
	failed := 0
	check := func(method, endpoint string, body any, want int) {
		if !testEndpoint(client, *baseURL, method, endpoint, body, want) {
			failed++
		}
	}

	fmt.Println("=== 坚持每一天 API 测试 ===")

	fmt.Println("\n1. 健康检查 /health")
	check(http.MethodGet, "/health", nil, http.StatusOK)

	fmt.Println("\n2. 获取习惯列表")
	check(http.MethodGet, "/api/v1/habits", nil, http.StatusOK)

	fmt.Println("\n3. 新建习惯")
	name := fmt.Sprintf("冒烟测试-%d", time.Now().Unix())
	check(http.MethodPost, "/api/v1/habits", map[string]string{"name": name, "target": "1次"}, http.StatusCreated)
	check(http.MethodPost, "/api/v1/habits", map[string]string{"name": name}, http.StatusConflict)

	fmt.Println("\n4. 打卡 / 取消打卡")
	path := "/api/v1/habits/" + url.PathEscape(name)
	check(http.MethodPost, path+"/done", nil, http.StatusOK)
	check(http.MethodDelete, path+"/done", nil, http.StatusOK)

	fmt.Println("\n5. 统计与日历")
	check(http.MethodGet, "/api/v1/stats", nil, http.StatusOK)
	check(http.MethodGet, "/api/v1/calendar?month="+time.Now().Format("2006-01"), nil, http.StatusOK)

	fmt.Println("\n6. 删除习惯")
	check(http.MethodDelete, path, nil, http.StatusOK)

	fmt.Println("\n=== 测试完成 ===")
	if failed > 0 {
		fmt.Printf("%d 个请求不符合预期\n", failed)
		os.Exit(1)
	}
}

func testEndpoint(client *http.Client, baseURL, method, endpoint string, body any, want int) bool {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			fmt.Printf("❌ 编码请求失败: %v\n", err)
			return false
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL+endpoint, reader)
	if err != nil {
		fmt.Printf("❌ 创建请求失败: %v\n", err)
		return false
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("❌ 请求失败: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	mark := "✅"
	if resp.StatusCode != want {
		mark = "❌"
	}
	fmt.Printf("%s %s %s - Status: %d (want %d)\n", mark, method, endpoint, resp.StatusCode, want)
	fmt.Printf("Response: %s\n", string(respBody))
	return resp.StatusCode == want
}
