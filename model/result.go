package model

import (
	"encoding/json"
	"errors"
	"time"
)

type ResultStatus string

const (
	SUCCESS ResultStatus = "success"
	FAILURE ResultStatus = "failure"
)

func SuccessResult(msg string, data any) *Result {
	return &Result{
		Status: SUCCESS,
		Msg:    msg,
		Data:   data,
		Time:   time.Now(),
	}
}

func FailureResult(err error, code string) *Result {
	return &Result{
		Status: FAILURE,
		Code:   code,
		Msg:    err.Error(),
		Time:   time.Now(),
	}
}

// Result is the envelope every HTTP response and websocket frame is wrapped in.
type Result struct {
	Status ResultStatus
	Code   string
	Msg    string
	Data   any
	Raw    json.RawMessage
	Time   time.Time
}

func (r *Result) Error() error {
	if r.Status == SUCCESS {
		return nil
	}

	return errors.New(r.Msg)
}

func (r *Result) MarshalJSON() ([]byte, error) {
	output := struct {
		Status ResultStatus    `json:"status"`
		Code   string          `json:"code,omitempty"`
		Msg    string          `json:"msg"`
		Data   json.RawMessage `json:"data"`
		Time   time.Time       `json:"time"`
	}{
		Status: r.Status,
		Code:   r.Code,
		Msg:    r.Msg,
		Time:   r.Time,
	}

	if r.Data != nil {
		bs, err := json.Marshal(r.Data)
		if err != nil {
			return nil, err
		}

		output.Data = bs
	}

	return json.Marshal(&output)
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var input struct {
		Status ResultStatus    `json:"status"`
		Code   string          `json:"code"`
		Msg    string          `json:"msg"`
		Data   json.RawMessage `json:"data"`
		Time   time.Time       `json:"time"`
	}

	if err := json.Unmarshal(data, &input); err != nil {
		return err
	}

	r.Status = input.Status
	r.Code = input.Code
	r.Msg = input.Msg
	r.Raw = input.Data
	r.Time = input.Time

	return nil
}
