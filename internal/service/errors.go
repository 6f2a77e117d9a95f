package service

import "errors"

// Common service errors
var (
	ErrInvalidInput = errors.New("invalid input")
)

// Admission service specific errors
var (
	ErrEntryNotFound  = errors.New("queue entry not found")
	ErrAlreadyMatched = errors.New("queue entry already matched")
)

// Matching engine specific errors
//
// 둘 다 재시도 가능 에러로 노출된다. 커밋은 매치 단위 트랜잭션이므로
// 패스 중간 실패가 부분 상태를 남기지 않는다.
var (
	ErrQueueBusy       = errors.New("match queue is busy, try again")
	ErrQueueProcessing = errors.New("error processing the queue, please retry")
)
