package sizing

import (
	"fmt"
	"math"

	"smarttrading/internal/model"
)

// 数量计算：把期望的下单数量归一到合约规格允许的范围
// 开仓向上取整（保证满足最小名义价值），平仓向下取整（不能超过实际持仓）

// Result 一次开仓的数量决策
type Result struct {
	Size     float64 // 实际下单数量
	Bumped   bool    // 是否因最小名义价值被抬高过
	Notional float64 // 按参考价估算的名义价值
}

// ComputeOpenSize 计算开仓数量
// requested是按固定名义价值/价格换算出来的期望数量，price是参考价
// margin是名义价值安全系数（>1），防止参考价和成交价的偏差导致交易所拒单
func ComputeOpenSize(requested, price float64, spec model.ContractSpec, margin float64) (Result, error) {
	if price <= 0 {
		return Result{}, fmt.Errorf("invalid reference price: %v", price)
	}
	if requested <= 0 {
		return Result{}, fmt.Errorf("invalid requested size: %v", requested)
	}
	if margin < 1 {
		margin = 1
	}

	size := RoundUp(math.Max(requested, spec.MinSize), spec.SizeStep)
	bumped := false
	if spec.MinNotional > 0 && size*price < spec.MinNotional {
		// 名义价值不足，按最小名义价值加安全余量反推数量
		size = RoundUp(spec.MinNotional*margin/price, spec.SizeStep)
		if size < spec.MinSize {
			size = RoundUp(spec.MinSize, spec.SizeStep)
		}
		bumped = true
	}
	return Result{Size: size, Bumped: bumped, Notional: size * price}, nil
}

// SplitHalf 把仓位对半拆分用于分批止盈
// 任意一半达不到最小下单数量时放弃拆分，返回ok=false
func SplitHalf(total float64, spec model.ContractSpec) (first, second float64, ok bool) {
	half := RoundDown(total/2, spec.SizeStep)
	rest := roundStep(total-half, spec.SizeStep)
	if half < spec.MinSize || rest < spec.MinSize {
		return 0, 0, false
	}
	return half, rest, true
}

// ComputeCloseSize 计算平仓数量，以交易所返回的真实持仓为上限
func ComputeCloseSize(requested, held float64, spec model.ContractSpec) float64 {
	size := math.Min(requested, held)
	return RoundDown(size, spec.SizeStep)
}

// RoundUp 向上取整到步进的整数倍
func RoundUp(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	n := math.Ceil(v/step - 1e-9)
	return roundStep(n*step, step)
}

// RoundDown 向下取整到步进的整数倍
func RoundDown(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	n := math.Floor(v/step + 1e-9)
	return roundStep(n*step, step)
}

// roundStep 消除浮点误差，比如0.30000000000000004
func roundStep(v, step float64) float64 {
	places := 0
	for s := step; s < 1 && places < 12; s *= 10 {
		places++
	}
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
