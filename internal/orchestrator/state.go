package orchestrator

import (
	"github.com/goccy/go-json"
	"gorm.io/datatypes"
)

// 单账户视角的仓位生命周期状态机
// 状态只会沿着下面的边前进，ABORTED是任何阶段都能进的终态
type State string

const (
	StateNoPosition         State = "NO_POSITION"
	StateLeverageSet        State = "LEVERAGE_SET"
	StateOpening            State = "OPENING"
	StateOpenUnprotected    State = "OPEN_UNPROTECTED"
	StateOpenProtected      State = "OPEN_PROTECTED"
	StateBreakevenMigrating State = "BREAKEVEN_MIGRATING"
	StateBreakevenDone      State = "BREAKEVEN_DONE"
	StateClosed             State = "CLOSED"
	StateAborted            State = "ABORTED"
)

var transitions = map[State][]State{
	StateNoPosition:         {StateLeverageSet, StateAborted},
	StateLeverageSet:        {StateOpening, StateAborted},
	StateOpening:            {StateOpenUnprotected, StateAborted},
	StateOpenUnprotected:    {StateOpenProtected, StateClosed, StateAborted},
	StateOpenProtected:      {StateBreakevenMigrating, StateClosed, StateAborted},
	StateBreakevenMigrating: {StateBreakevenDone, StateOpenProtected, StateOpenUnprotected, StateClosed, StateAborted},
	StateBreakevenDone:      {StateClosed, StateAborted},
}

// CanTransition 判断状态迁移是否合法
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// 每个步骤的结果，三态
const (
	StepSuccess = "success"
	StepSkipped = "skipped"
	StepFailed  = "failed"
)

type Step struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Report 一次信号处理的过程记录，终态和步骤明细落到交易记录里
type Report struct {
	State State
	Steps []Step
}

func newReport() *Report {
	return &Report{State: StateNoPosition}
}

// resume 恢复到持久化过的状态，续接已有仓位的生命周期
func (r *Report) resume(s State) {
	r.State = s
}

// advance 推进状态，非法迁移直接panic，属于编码错误不是运行时错误
func (r *Report) advance(to State) {
	if !CanTransition(r.State, to) {
		panic("invalid state transition: " + string(r.State) + " -> " + string(to))
	}
	r.State = to
}

func (r *Report) step(name, status, detail string) {
	r.Steps = append(r.Steps, Step{Name: name, Status: status, Detail: detail})
}

func (r *Report) success(name string) { r.step(name, StepSuccess, "") }

func (r *Report) skipped(name, detail string) { r.step(name, StepSkipped, detail) }

func (r *Report) failed(name string, err error) { r.step(name, StepFailed, err.Error()) }

// StepsJSON 序列化步骤明细，存进交易记录的JSON列
func (r *Report) StepsJSON() datatypes.JSON {
	data, err := json.Marshal(r.Steps)
	if err != nil {
		return nil
	}
	return data
}
