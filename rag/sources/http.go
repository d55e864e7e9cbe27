package sources

import (
	"fmt"
	"time"

	"github.com/BaSui01/cricketflow/internal/tlsutil"
	"github.com/go-resty/resty/v2"
)

// newRESTClient 创建 JSON REST 客户端，5xx/429/网络错误自动重试
func newRESTClient(baseURL string, timeout time.Duration, retries int) *resty.Client {
	return resty.NewWithClient(tlsutil.SecureHTTPClient(timeout)).
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(retries).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(retryCondition)
}

func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= 500 || code == 429 || code == 408
}

func checkResponse(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	body := resp.String()
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Errorf("%s %s: status %d: %s", resp.Request.Method, resp.Request.URL, resp.StatusCode(), body)
}
