package quote

// Progression reports task completion for a quote's assignments. It reads 99 until every task
// is complete, then 100. An empty task list counts as complete.
func Progression(total, completed int) int {
	if total == completed {
		return 100
	}
	return 99
}
