package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// clientKeyPatterns cover the rotating ways the embed page hides its client
// key. Each pattern captures the key (or its parts) in submatches.
var clientKeyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`<meta name="_gg_fb" content="([a-zA-Z0-9]+)">`),
	regexp.MustCompile(`<!--\s+_is_th:([0-9a-zA-Z]+)\s+-->`),
	regexp.MustCompile(`<script>window\._lk_db\s+=\s+\{x:\s+["']([a-zA-Z0-9]+)["'],\s+y:\s+["']([a-zA-Z0-9]+)["'],\s+z:\s+["']([a-zA-Z0-9]+)["']\};</script>`),
	regexp.MustCompile(`<div\s+data-dpi="([0-9a-zA-Z]+)"\s+[^>]*></div>`),
	regexp.MustCompile(`<script nonce="([0-9a-zA-Z]+)">`),
	regexp.MustCompile("<script>window\\._xy_ws = ['\"`]([0-9a-zA-Z]+)['\"`];</script>"),
}

// extractClientKey pulls the client key out of an embed page. Multi-part
// keys are concatenated in capture order.
func extractClientKey(html string) (string, error) {
	for _, re := range clientKeyPatterns {
		m := re.FindStringSubmatch(html)
		if m == nil {
			continue
		}
		return strings.Join(m[1:], ""), nil
	}
	return "", fmt.Errorf("no client key pattern matched")
}
