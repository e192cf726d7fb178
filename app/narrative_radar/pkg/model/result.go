package model

// Status 外部协作调用的结果状态
type Status string

const (
	// StatusOK 完全由外部结果支撑
	StatusOK Status = "ok"
	// StatusFallback 使用了文档化的降级值
	StatusFallback Status = "fallback"
	// StatusFailed 无法给出可用结果，Raw 中保留原始响应
	StatusFailed Status = "failed"
)

// Result 外部协作调用的显式结果
type Result[T any] struct {
	Value  T
	Status Status
	Raw    string
	Err    error
}

// OK 成功结果
func OK[T any](v T) Result[T] {
	return Result[T]{Value: v, Status: StatusOK}
}

// Fallback 降级结果
func Fallback[T any](v T, err error) Result[T] {
	return Result[T]{Value: v, Status: StatusFallback, Err: err}
}

// Failed 失败结果，保留原始响应便于诊断
func Failed[T any](raw string, err error) Result[T] {
	return Result[T]{Status: StatusFailed, Raw: raw, Err: err}
}

// Grounded 是否完全由外部结果支撑
func (r Result[T]) Grounded() bool {
	return r.Status == StatusOK
}
