package progress

// ComputeState 根据课程定义、进度记录和最新测验结果计算派生状态。
// course.Modules 必须已按 Position 排序；缺失的进度或测验记录一律按"未完成"处理。
func ComputeState(course *Course, record ProgressRecord, attempts map[uint]QuizAttempt) DerivedState {
	d := DerivedState{
		Unlocked:         make(map[uint]bool),
		ContentCompleted: make(map[uint]bool),
		ModuleStatus:     make(map[uint]Status),
	}
	if course == nil {
		return d
	}

	var total, done int
	// 当前位置之前的所有必修模块是否全部完成
	prefixComplete := true
	for i, m := range course.Modules {
		full := moduleFullyComplete(m, record, attempts)
		unlocked := i == 0 || !m.IsCompulsory || prefixComplete
		d.Unlocked[m.ID] = unlocked

		for _, item := range m.Content {
			c := record.contentDone(m.ID, item.ID)
			d.ContentCompleted[item.ID] = c
			if m.IsCompulsory {
				total++
				if c {
					done++
				}
			}
		}

		if m.IsCompulsory {
			// 测验算一个单位，只有模块完成时才计入
			if m.HasQuiz() {
				total++
				if full {
					done++
				}
			}
			if !full {
				prefixComplete = false
			}
		}

		d.ModuleStatus[m.ID] = statusFor(unlocked, full)
	}

	d.OverallProgress = percent(done, total)
	return d
}

// moduleFullyComplete 所有内容已完成，且有测验时最新作答已通过
func moduleFullyComplete(m Module, record ProgressRecord, attempts map[uint]QuizAttempt) bool {
	for _, item := range m.Content {
		if !record.contentDone(m.ID, item.ID) {
			return false
		}
	}
	if m.HasQuiz() {
		a, ok := attempts[m.QuizID]
		if !ok || !a.Passed {
			return false
		}
	}
	return true
}

func statusFor(unlocked, full bool) Status {
	switch {
	case !unlocked:
		return StatusLocked
	case full:
		return StatusComplete
	default:
		return StatusUnlocked
	}
}

// percent 四舍五入（0.5 向上）到整数百分比
func percent(done, total int) int {
	if total == 0 {
		return 0
	}
	return (200*done + total) / (2 * total)
}

// AllCompulsoryComplete 证书发放前置条件：所有必修模块均为 COMPLETE
func AllCompulsoryComplete(course *Course, d DerivedState) bool {
	if course == nil {
		return false
	}
	for _, m := range course.Modules {
		if m.IsCompulsory && d.ModuleStatus[m.ID] != StatusComplete {
			return false
		}
	}
	return true
}

func hasContent(m Module, contentID uint) bool {
	for _, item := range m.Content {
		if item.ID == contentID {
			return true
		}
	}
	return false
}
