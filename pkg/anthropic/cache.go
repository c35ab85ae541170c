package anthropic

// BuildCachedSystemBlocks wraps the extraction instructions in a single
// system block with a cache breakpoint, so consecutive invoices in one run
// reuse the cached prompt. An empty ttl uses the API default of 5 minutes.
func BuildCachedSystemBlocks(text, ttl string) []SystemBlock {
	return []SystemBlock{
		{
			Text:         text,
			CacheControl: &CacheControl{TTL: ttl},
		},
	}
}
