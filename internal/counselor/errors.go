package counselor

import (
	"errors"
	"fmt"
)

// 定义基础错误类型。
// 只有模型调用失败会作为错误向调用方传播；
// 简历缺失、检索失败在检索层折叠为哨兵上下文，
// 路线图解析/校验失败折叠为统一错误负载。
var (
	ErrModelInvocationFailed = errors.New("调用语言模型失败")
	ErrInvalidSession        = errors.New("会话信息不合法")
)

// CounselError 包含详细错误信息的自定义错误
type CounselError struct {
	SessionID string
	Op        string
	BaseErr   error
	Detail    string
}

func (e *CounselError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, 会话:%s): %s", e.BaseErr, e.Op, e.SessionID, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, 会话:%s)", e.BaseErr, e.Op, e.SessionID)
}

func (e *CounselError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *CounselError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数
func NewModelInvocationError(sessionID, op, detail string) error {
	return &CounselError{
		SessionID: sessionID,
		Op:        op,
		BaseErr:   ErrModelInvocationFailed,
		Detail:    detail,
	}
}

func NewInvalidSessionError(sessionID, detail string) error {
	return &CounselError{
		SessionID: sessionID,
		Op:        "validate",
		BaseErr:   ErrInvalidSession,
		Detail:    detail,
	}
}
