package units

import (
	"math"

	"recipe-discovery/internal/core/domain"
)

// epsilon 浮點比較容差
const epsilon = 1e-9

// ConversionTable 單位換算查詢
type ConversionTable interface {
	Factor(from, to string) (float64, bool)
}

// Reconciliation 一組所需/現有數量的比對結果。
// Verdict 為 unknown 時不做任何數值比較，AvailableAmount 保留原單位數量
type Reconciliation struct {
	Verdict            domain.Verdict `json:"verdict"`
	RequiredAmount     float64        `json:"required_amount"`
	AvailableAmount    float64        `json:"available_amount"`
	MissingAmount      float64        `json:"missing_amount"`
	AmountUnit         string         `json:"amount_unit"`
	AvailableUnitLabel string         `json:"available_unit_label,omitempty"`
	Converted          bool           `json:"converted"`
}

// Resolver 單位相容性判斷，無狀態
type Resolver struct {
	table ConversionTable
}

// NewResolver 建立單位解析器；table 為 nil 時使用內建換算表
func NewResolver(table ConversionTable) *Resolver {
	if table == nil {
		table = NewTable()
	}
	return &Resolver{table: table}
}

// Reconcile 比較所需與現有數量。
// 相同單位直接比較；同維度且有換算倍率時先把現有數量換成所需單位；否則為 unknown
func (r *Resolver) Reconcile(required, available domain.Quantity) Reconciliation {
	if required.Unit.ID == available.Unit.ID {
		return compare(required.Amount, available.Amount, required.Unit.Label(), false)
	}

	if factor, ok := r.table.Factor(available.Unit.ID, required.Unit.ID); ok {
		return compare(required.Amount, available.Amount*factor, required.Unit.Label(), true)
	}

	return Reconciliation{
		Verdict:            domain.VerdictUnknown,
		RequiredAmount:     required.Amount,
		AvailableAmount:    available.Amount,
		AmountUnit:         available.Unit.Label(),
		AvailableUnitLabel: available.Unit.Label(),
	}
}

// ReconcileManual 以使用者提供的數量完成 unknown 的判定。
// manualAmount 是食譜需求換算成現有單位後的數量，結果以現有單位表示
func (r *Resolver) ReconcileManual(required, available domain.Quantity, manualAmount float64) Reconciliation {
	if manualAmount < 0 {
		manualAmount = 0
	}
	rec := compare(manualAmount, available.Amount, available.Unit.Label(), false)
	rec.AvailableUnitLabel = available.Unit.Label()
	return rec
}

func compare(required, available float64, unitLabel string, converted bool) Reconciliation {
	rec := Reconciliation{
		RequiredAmount:  round(required),
		AvailableAmount: round(available),
		AmountUnit:      unitLabel,
		Converted:       converted,
	}
	switch {
	case available+epsilon >= required:
		rec.Verdict = domain.VerdictFull
	case available <= epsilon:
		rec.Verdict = domain.VerdictNone
		rec.AvailableAmount = 0
		rec.MissingAmount = round(required)
	default:
		rec.Verdict = domain.VerdictPartial
		rec.MissingAmount = round(required - available)
	}
	return rec
}

// round 保留六位小數，避免換算誤差出現在回應中
func round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
