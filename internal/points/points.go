// Package points 提供估點牌組的查詢
//
// 每種點數系統對應一組固定順序的牌面，未知的系統一律退回 Fibonacci。
// 純查表，沒有副作用。
package points

// 支援的點數系統識別字
const (
	Fibonacci         = "fibonacci"
	ModifiedFibonacci = "modified_fibonacci"
	PowersOfTwo       = "powers_of_2"
	TShirt            = "t_shirt"
)

var systemCards = map[string][]string{
	Fibonacci:         {"1", "2", "3", "5", "8", "13", "21", "?", "☕"},
	ModifiedFibonacci: {"0", "0.5", "1", "2", "3", "5", "8", "13", "20", "40", "100", "?", "☕"},
	PowersOfTwo:       {"1", "2", "4", "8", "16", "32", "64", "?", "☕"},
	TShirt:            {"XS", "S", "M", "L", "XL", "XXL", "?", "☕"},
}

// Cards 回傳指定點數系統的牌面，順序固定
// 未知的識別字退回 Fibonacci 牌組；回傳值是複本，呼叫端可以任意修改
func Cards(system string) []string {
	cards, ok := systemCards[system]
	if !ok {
		cards = systemCards[Fibonacci]
	}
	out := make([]string, len(cards))
	copy(out, cards)
	return out
}

// Valid 檢查牌面是否屬於指定點數系統
func Valid(system, card string) bool {
	cards, ok := systemCards[system]
	if !ok {
		cards = systemCards[Fibonacci]
	}
	for _, c := range cards {
		if c == card {
			return true
		}
	}
	return false
}

// Known 回報點數系統識別字是否為已知系統
func Known(system string) bool {
	_, ok := systemCards[system]
	return ok
}
