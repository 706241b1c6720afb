package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskLeadClassify runs the automated classifier against one lead.
const TaskLeadClassify = "leads.classify"

type LeadClassifyPayload struct {
	LeadID string `json:"leadId"`
}

func NewLeadClassifyTask(payload LeadClassifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadClassify, data), nil
}

func ParseLeadClassifyPayload(task *asynq.Task) (LeadClassifyPayload, error) {
	var payload LeadClassifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadClassifyPayload{}, err
	}
	return payload, nil
}
