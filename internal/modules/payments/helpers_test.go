package payments

import (
	"net/http"
	"time"
)

func testCfg(keys map[string]string) Config {
	return Config{Enabled: true, Mode: ModeSandbox, Keys: keys}
}

func testClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}
