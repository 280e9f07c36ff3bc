package router

import "fmt"

// Capability names advertised by provider configs. The set is open:
// unknown names fall back to their declared default (or false).
const (
	// CapLargeBlockScans 大范围历史区块扫描（eth_getLogs 跨数万块）
	// 默认关闭：免费节点通常限制在几千块以内
	CapLargeBlockScans = "largeBlockScans"

	// CapENS 域名解析调用。默认关闭。
	CapENS = "ens"

	// CapBatchCalls JSON-RPC batch 请求。主流节点默认支持，需显式关闭。
	CapBatchCalls = "batchCalls"
)

// capabilityDefaults declares, per capability, whether absence of the
// flag means "supported" (opt-out) or "unsupported" (opt-in).
var capabilityDefaults = map[string]bool{
	CapLargeBlockScans: false,
	CapENS:             false,
	CapBatchCalls:      true,
}

// ProviderConfig 单个 RPC 节点的静态配置（不可变）
type ProviderConfig struct {
	Name           string          `json:"name" db:"name"`
	URL            string          `json:"url" db:"url"`
	CallsPerSecond float64         `json:"calls_per_second" db:"calls_per_second"`
	CallsPerDay    int64           `json:"calls_per_day,omitempty" db:"calls_per_day"` // 0 = unlimited
	Priority       int             `json:"priority" db:"priority"`                     // higher = preferred
	Active         bool            `json:"active" db:"active"`
	Capabilities   map[string]bool `json:"capabilities,omitempty"`
}

// HasCapability reports whether this provider advertises the named
// capability, honoring the per-capability default when unset.
func (c ProviderConfig) HasCapability(name string) bool {
	if v, ok := c.Capabilities[name]; ok {
		return v
	}
	return capabilityDefaults[name]
}

// Validate 构造前的基本校验
func (c ProviderConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("provider config: name is required")
	}
	if c.URL == "" {
		return fmt.Errorf("provider config %s: url is required", c.Name)
	}
	if c.CallsPerSecond <= 0 {
		return fmt.Errorf("provider config %s: calls_per_second must be > 0", c.Name)
	}
	if c.CallsPerDay < 0 {
		return fmt.Errorf("provider config %s: calls_per_day must be >= 0", c.Name)
	}
	return nil
}
