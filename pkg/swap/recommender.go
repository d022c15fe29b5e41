package swap

import (
	"sort"

	"github.com/paiban/dutyplan/pkg/model"
)

// Recommender 换班推荐器
type Recommender struct {
	evaluator *Evaluator
}

// NewRecommender 创建换班推荐器
func NewRecommender(evaluator *Evaluator) *Recommender {
	return &Recommender{evaluator: evaluator}
}

// Recommendation 换班推荐
type Recommendation struct {
	Rank       int         `json:"rank"`
	Type       Type        `json:"swap_type"`
	Target     string      `json:"target"`
	TargetSlot *Slot       `json:"target_slot,omitempty"`
	Score      float64     `json:"score"`
	Reason     string      `json:"reason"`
	Evaluation *Evaluation `json:"evaluation"`
}

// Request 返回推荐对应的换班请求
func (r *Recommendation) Request(source Slot) *SwapRequest {
	return &SwapRequest{Source: source, Target: r.Target, TargetSlot: r.TargetSlot}
}

// RecommendOptions 推荐选项
type RecommendOptions struct {
	MaxRecommendations int      `json:"max_recommendations"`
	Preferred          []string `json:"preferred,omitempty"` // 优先考虑的住院医，得分 +10
	Exclude            []string `json:"exclude,omitempty"`
	AllowExchange      bool     `json:"allow_exchange"`
	MinScore           float64  `json:"min_score"`
}

// DefaultRecommendOptions 返回默认选项
func DefaultRecommendOptions() *RecommendOptions {
	return &RecommendOptions{
		MaxRecommendations: 5,
		AllowExchange:      true,
		MinScore:           60,
	}
}

// Recommend 为一次值班推荐接替人或互换对象，按得分降序
func (r *Recommender) Recommend(req *model.Request, result *model.Result, source Slot, opts *RecommendOptions) ([]Recommendation, error) {
	if opts == nil {
		opts = DefaultRecommendOptions()
	}
	exclude := toSet(opts.Exclude)
	preferred := toSet(opts.Preferred)

	var candidates []Recommendation
	add := func(sr *SwapRequest) error {
		eval, err := r.evaluator.Evaluate(req, result, sr)
		if err != nil {
			return err
		}
		if !eval.Feasible {
			return nil
		}
		score := eval.Score
		if preferred[sr.Target] {
			score += 10
		}
		if score < opts.MinScore {
			return nil
		}
		candidates = append(candidates, Recommendation{
			Type:       sr.Type(),
			Target:     sr.Target,
			TargetSlot: sr.TargetSlot,
			Score:      score,
			Reason:     reason(sr, eval),
			Evaluation: eval,
		})
		return nil
	}

	for i := range req.Residents {
		target := req.Residents[i].Name
		if target == source.Resident || exclude[target] {
			continue
		}
		if err := add(&SwapRequest{Source: source, Target: target}); err != nil {
			return nil, err
		}
		if !opts.AllowExchange {
			continue
		}
		for _, slot := range slotsOf(result, target) {
			if slot.Date == source.Date {
				continue
			}
			slot := slot
			if err := add(&SwapRequest{Source: source, Target: target, TargetSlot: &slot}); err != nil {
				return nil, err
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Type == TypeTakeOver && candidates[j].Type == TypeExchange
	})
	if opts.MaxRecommendations > 0 && len(candidates) > opts.MaxRecommendations {
		candidates = candidates[:opts.MaxRecommendations]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
	return candidates, nil
}

// FindBestTakeOver 为无法值班的住院医找到最佳接替人，没有可行方案返回 nil
func (r *Recommender) FindBestTakeOver(req *model.Request, result *model.Result, source Slot) (*Recommendation, error) {
	recs, err := r.Recommend(req, result, source, &RecommendOptions{MaxRecommendations: 1, MinScore: 0})
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return &recs[0], nil
}

func reason(sr *SwapRequest, eval *Evaluation) string {
	if sr.Type() == TypeTakeOver {
		if eval.Impact.Target.Shortfall > 0 {
			return "接替后仍未达到需求次数"
		}
		return "接替后恰好达到需求次数"
	}
	switch {
	case eval.Score > 80:
		return "互换后双方休日值班更均衡"
	case eval.Score < 80:
		return "互换可行，但休日值班差距变大"
	default:
		return "互换可行，休日值班不变"
	}
}

// slotsOf 按日期、医院顺序返回住院医的所有值班
func slotsOf(result *model.Result, name string) []Slot {
	var slots []Slot
	for date, byFacility := range result.Assignments {
		for facility, names := range byFacility {
			for _, n := range names {
				if n == name {
					slots = append(slots, Slot{Resident: name, Date: date, Facility: facility})
				}
			}
		}
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Date != slots[j].Date {
			return slots[i].Date < slots[j].Date
		}
		return slots[i].Facility < slots[j].Facility
	})
	return slots
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
