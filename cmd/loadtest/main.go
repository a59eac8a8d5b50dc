package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Result 记录单次请求的 HTTP 结果，便于聚合统计。
type Result struct {
	Status int
	Body   string
	Err    error
}

func main() {
	baseURL := flag.String("base", "http://localhost:3002", "server base url")
	productID := flag.String("product", "", "product id (uuid)")
	token := flag.String("token", "loadtest-bearer-token", "bearer token (shape check only)")
	stockCheck := flag.Bool("stock", true, "check stock after test")

	// 超卖测试参数：N 个用户并发抢同一件商品各 1 件
	nUsers := flag.Int("users", 200, "distinct users")
	concurrency := flag.Int("c", 50, "max concurrency")
	flag.Parse()

	if *productID == "" {
		panic("product id is required: -product <uuid>")
	}

	client := &http.Client{Timeout: 5 * time.Second}

	fmt.Printf("start oversell test: product=%s users=%d concurrency=%d\n", *productID, *nUsers, *concurrency)
	results := runCreateOrders(client, *baseURL, *token, *productID, *nUsers, *concurrency)
	printSummary("oversell", results)

	if *stockCheck {
		stock, err := getStock(client, *baseURL, *productID)
		if err != nil {
			fmt.Println("stock check err:", err)
		} else {
			fmt.Println("final stock:", stock)
		}
	}
}

func runCreateOrders(client *http.Client, baseURL, token, productID string, nUsers, concurrency int) []Result {
	type line struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	type req struct {
		UserID string `json:"user_id"`
		Items  []line `json:"items"`
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, nUsers)

	for i := 0; i < nUsers; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			body := req{
				UserID: fmt.Sprintf("loadtest-user-%04d", idx+1),
				Items:  []line{{ProductID: productID, Quantity: 1}},
			}
			results[idx] = createOnce(client, baseURL, token, body)
		}(i)
	}

	wg.Wait()
	return results
}

func createOnce(client *http.Client, baseURL, token string, body any) Result {
	b, _ := json.Marshal(body)
	url := fmt.Sprintf("%s/api/orders", baseURL)
	httpReq, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(httpReq)
	if err != nil {
		return Result{Err: err}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	return Result{Status: resp.StatusCode, Body: string(respBody)}
}

// printSummary 聚合输出不同状态码分布。
func printSummary(name string, results []Result) {
	count := map[int]int{}
	errCount := 0
	for _, r := range results {
		if r.Err != nil {
			errCount++
			continue
		}
		count[r.Status]++
	}
	fmt.Printf("[%s] http status summary:\n", name)
	for _, code := range []int{200, 400, 404, 429, 500} {
		if count[code] > 0 {
			fmt.Printf("  %d -> %d\n", code, count[code])
		}
	}
	if errCount > 0 {
		fmt.Printf("  errors -> %d\n", errCount)
	}
}

// getStock 查询当前库存，用于压测后校验是否出现超卖。
func getStock(client *http.Client, baseURL, productID string) (int64, error) {
	url := fmt.Sprintf("%s/api/products/%s/stock", baseURL, productID)
	resp, err := client.Get(url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}

	var out struct {
		Code int `json:"code"`
		Data struct {
			Stock int64 `json:"stock"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return 0, err
	}
	return out.Data.Stock, nil
}
