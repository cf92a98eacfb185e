package service

import (
	"math"
	"strconv"

	"planning_poker/internal/models"
)

// Statistics 是一輪開牌後的統計結果
type Statistics struct {
	Average    float64 `json:"average"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Consensus  bool    `json:"consensus"`
	TotalVotes int     `json:"total_votes"`
}

// ComputeStatistics 計算一組選牌的統計數據
// 輸入是所有已選牌參與者的牌面；"?"、"☕"、"SKIPPED" 之類的非數字牌
// 不納入平均值，但會計入 total_votes。沒有任何數字牌時平均、最小、
// 最大皆為 0，且不成立共識。平均值四捨五入到小數第二位。
func ComputeStatistics(selections []string) Statistics {
	var numeric []float64
	for _, selection := range selections {
		if selection == models.CardSkipped {
			continue
		}
		if value, err := strconv.ParseFloat(selection, 64); err == nil {
			numeric = append(numeric, value)
		}
	}

	stats := Statistics{TotalVotes: len(selections)}
	if len(numeric) == 0 {
		return stats
	}

	sum := 0.0
	min := numeric[0]
	max := numeric[0]
	distinct := make(map[float64]struct{}, len(numeric))
	for _, v := range numeric {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		distinct[v] = struct{}{}
	}

	stats.Average = math.Round(sum/float64(len(numeric))*100) / 100
	stats.Min = min
	stats.Max = max
	stats.Consensus = len(distinct) == 1
	return stats
}
