package subgraph

// swapFields is the field set every swaps query requests; it is fixed by the
// shard schema and must not drift.
const swapFields = `
      id
      transaction { id blockNumber }
      timestamp
      pool { id }
      token0 { id symbol name decimals }
      token1 { id symbol name decimals }
      sender
      recipient
      origin
      amount0
      amount1
      amountUSD
      sqrtPriceX96
      tick
      logIndex`

// swapsQueryFirst fetches the first page of a day: ascending id order with
// inclusive timestamp bounds and no cursor.
const swapsQueryFirst = `query SwapsFirst($first: Int!, $start: BigInt!, $end: BigInt!) {
  swaps(
    first: $first
    orderBy: id
    orderDirection: asc
    where: { timestamp_gte: $start, timestamp_lte: $end }
  ) {` + swapFields + `
  }
}`

// swapsQueryAfter fetches subsequent pages using an id_gt keyset cursor.
// Ordering by id is deterministic and skip-free across retries; timestamp
// cursors are not, because ties within a second are common.
const swapsQueryAfter = `query SwapsAfter($first: Int!, $start: BigInt!, $end: BigInt!, $lastID: ID!) {
  swaps(
    first: $first
    orderBy: id
    orderDirection: asc
    where: { timestamp_gte: $start, timestamp_lte: $end, id_gt: $lastID }
  ) {` + swapFields + `
  }
}`

// swapsSubscription re-evaluates on every new block; the harvester's live
// tail keeps a sliding window of recently seen ids to dedupe across
// evaluations.
const swapsSubscription = `subscription NewSwaps($since: BigInt!) {
  swaps(
    first: 100
    orderBy: id
    orderDirection: desc
    where: { timestamp_gte: $since }
  ) {` + swapFields + `
  }
}`

// swapsPageVariables builds the variable object for a page fetch.
// afterID empty means first page.
func swapsPageVariables(first int, start, end int64, afterID string) map[string]interface{} {
	vars := map[string]interface{}{
		"first": first,
		"start": start,
		"end":   end,
	}
	if afterID != "" {
		vars["lastID"] = afterID
	}
	return vars
}
