package service

import "time"

// IsLive 하트비트가 타임아웃 윈도우 안에 있는지 검사
//
// 서버와 클라이언트 양쪽의 후보 필터링에 쓰이는 순수 술어.
// lastHeartbeat >= now - timeout 이면 live.
func IsLive(lastHeartbeat time.Time, timeout time.Duration, now time.Time) bool {
	return !lastHeartbeat.Before(now.Add(-timeout))
}
