package narrative

import "fmt"

// instruction is the fixed brief request. The digest is appended verbatim.
const instruction = `Analyze this PJM real-time market data and provide:

1. **Price Spikes Analysis**: Identify nodes/zones with unusual LMP spikes and potential causes
2. **Congestion Hotspots**: Which areas showed significant congestion and why it matters
3. **Trading Opportunities**: Actionable insights for energy traders based on the patterns
4. **Zone Comparison**: Key differences between zones that traders should watch

%s

Keep it concise, focused on trading insights, and highlight anything unusual for PJM markets.`

// Prompt embeds the digest in the instruction template.
func Prompt(digest string) string {
	return fmt.Sprintf(instruction, digest)
}
