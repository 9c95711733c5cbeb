package proxy

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const webshareListURL = "https://proxy.webshare.io/api/v2/proxy/list/?mode=direct&page=1&page_size=25"

type webshareEntry struct {
	ProxyAddress string `json:"proxy_address"`
	Port         int    `json:"port"`
	Username     string `json:"username"`
	Password     string `json:"password"`
}

type webshareListResponse struct {
	Results []webshareEntry `json:"results"`
}

// WebshareYielder periodically refreshes its proxy list from the Webshare
// API and round-robins over the last good list. A failed refresh keeps
// serving the previous list; an empty list yields nil (direct connection).
type WebshareYielder struct {
	token   string
	listURL string
	client  *http.Client
	logger  *log.Logger

	mu      sync.RWMutex
	proxies []Settings
	cursor  uint32
}

// NewWebshareYielder starts a background refresh loop against the Webshare
// proxy list API, polling every interval.
func NewWebshareYielder(token string, interval time.Duration) *WebshareYielder {
	y := &WebshareYielder{
		token:   token,
		listURL: webshareListURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  log.New(log.Writer(), "proxy: ", log.LstdFlags),
	}
	y.refresh()
	go y.refreshLoop(interval)
	return y
}

func (y *WebshareYielder) refreshLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		y.refresh()
	}
}

func (y *WebshareYielder) refresh() {
	req, err := http.NewRequest(http.MethodGet, y.listURL, nil)
	if err != nil {
		y.logger.Printf("refresh: build request: %v", err)
		return
	}
	req.Header.Set("Authorization", fmt.Sprintf("Token %s", y.token))

	resp, err := y.client.Do(req)
	if err != nil {
		y.logger.Printf("refresh: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		y.logger.Printf("refresh: unexpected status %d", resp.StatusCode)
		return
	}

	var parsed webshareListResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		y.logger.Printf("refresh: decode: %v", err)
		return
	}

	proxies := make([]Settings, 0, len(parsed.Results))
	for _, p := range parsed.Results {
		proxies = append(proxies, Settings{
			Server:   fmt.Sprintf("http://%s:%d", p.ProxyAddress, p.Port),
			Username: p.Username,
			Password: p.Password,
		})
	}

	y.mu.Lock()
	y.proxies = proxies
	y.mu.Unlock()
}

func (y *WebshareYielder) Next() *Settings {
	y.mu.RLock()
	defer y.mu.RUnlock()
	if len(y.proxies) == 0 {
		return nil
	}
	idx := atomic.AddUint32(&y.cursor, 1) - 1
	p := y.proxies[idx%uint32(len(y.proxies))]
	return &p
}
