package generator

import "fmt"

// Stage は生成処理の段階名です。
type Stage string

const (
	StageValidate        Stage = "validate"
	StageHealth          Stage = "health"
	StageAssign          Stage = "assign"
	StageUploadReference Stage = "upload-reference"
	StageRenderMask      Stage = "render-mask"
	StageUploadMask      Stage = "upload-mask"
	StageBuild           Stage = "build"
	StageSubmit          Stage = "submit"
	StageAwait           Stage = "await"
)

// StageError は失敗した段階を付加したエラーです。errors.Is / errors.As は内側のエラーに届きます。
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("scene generation failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) error {
	if se, ok := err.(*StageError); ok {
		return se
	}
	return &StageError{Stage: stage, Err: err}
}
