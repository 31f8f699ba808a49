package acquire

// Reached は録画上限の判定を行う
// maxCountとmaxSecondsはどちらも0なら無制限。いずれかに達した時点でtrueを返す
func Reached(count, maxCount int64, elapsed, maxSeconds float64) bool {
	if maxCount > 0 && count >= maxCount {
		return true
	}
	if maxSeconds > 0 && elapsed >= maxSeconds {
		return true
	}
	return false
}
