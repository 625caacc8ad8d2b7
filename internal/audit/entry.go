package audit

// Entry is one line in the hash-chained JSONL decision log. All fields are
// scalars to guarantee deterministic json.Marshal field order for
// reproducible hashing.
type Entry struct {
	Timestamp  string `json:"ts"`
	EvalID     string `json:"eval_id"`
	Address    string `json:"address"`
	Principal  string `json:"principal"`
	Verdict    string `json:"verdict"`
	Reason     string `json:"reason"`
	Redirected bool   `json:"redirected"`
	ConfigHash string `json:"config_hash"`
	PrevHash   string `json:"prev_hash"`
}
