package user

import "github.com/hitoshi/venturex/internal/model"

// stepIndex はステップの完了順序を返す。未完了（None）は-1、未知のステップはfalseを返す。
func stepIndex(step model.OnboardingStep) (int, bool) {
	if step == model.OnboardingStepNone {
		return -1, true
	}
	for i, s := range model.OnboardingSteps {
		if s == step {
			return i, true
		}
	}
	return 0, false
}

// NextStep は現在の完了ステップの次に完了すべきステップを返す。全て完了済みなら空文字を返す。
func NextStep(current model.OnboardingStep) model.OnboardingStep {
	idx, ok := stepIndex(current)
	if !ok || idx+1 >= len(model.OnboardingSteps) {
		return model.OnboardingStepNone
	}
	return model.OnboardingSteps[idx+1]
}

// advanceStep はrequestedの完了を反映した最終完了ステップを返す。
// 完了済みステップの再送はそのまま受け付け、状態を戻さない。
// 次のステップ以外を飛ばして完了しようとした場合はINVALID_STEP_ORDERを返す。
func advanceStep(current model.OnboardingStep, requested string) (model.OnboardingStep, error) {
	step := model.OnboardingStep(requested)
	reqIdx, ok := stepIndex(step)
	if !ok || step == model.OnboardingStepNone {
		return current, model.NewInvalidStepError(requested)
	}

	curIdx, ok := stepIndex(current)
	if !ok {
		// 保存済みの値が未知の場合は未開始として扱う
		curIdx = -1
	}

	switch {
	case reqIdx <= curIdx:
		return current, nil
	case reqIdx == curIdx+1:
		return step, nil
	default:
		return current, model.NewInvalidStepOrderError(requested, string(model.OnboardingSteps[curIdx+1]))
	}
}
