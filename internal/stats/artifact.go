// Package stats accumulates run statistics and materializes the artifact
// written after every group.
package stats

// RunSettings identifies the strategy a run executed.
type RunSettings struct {
	Strategy    string `json:"strategy"`
	Mode        string `json:"mode"`
	LLMProvider string `json:"llm_provider"`
	LLMModel    string `json:"llm_model"`
}

// ProcessResult is the terminal processing state of one file.
type ProcessResult struct {
	Success bool `json:"success"`

	// RetryRound is the round that produced the final result. Zero means
	// the first pass.
	RetryRound int `json:"retry_round"`

	FailureReason string `json:"failure_reason,omitempty"`

	// ProcTimestamp is when the final result was recorded, RFC 3339.
	ProcTimestamp string `json:"proc_timestamp"`

	// GroupIDs lists every group the file passed through, retries included.
	GroupIDs []string `json:"group_ids_incl_retries"`
}

// TokenStats is the per-file token accounting.
type TokenStats struct {
	PromptTokens     int `json:"prompt_tokens"`
	CandidatesTokens int `json:"candidates_tokens"`
	ActualTokens     int `json:"actual_tokens"`
	OtherTokens      int `json:"other_tokens"`
	EstimatedTokens  int `json:"estimated_tokens"`
}

// FileInfo describes the input document itself.
type FileInfo struct {
	FileName   string  `json:"file_name"`
	FileSizeMB float64 `json:"file_size_mb"`
}

// FileStat is the complete artifact entry for one file.
type FileStat struct {
	ProcessResult ProcessResult  `json:"file_process_result"`
	ModelOutput   map[string]any `json:"file_model_output"`
	TokenStats    TokenStats     `json:"file_token_stats"`
	Info          FileInfo       `json:"file_info"`
}

// GroupStat is the artifact entry for one dispatch group.
type GroupStat struct {
	GroupIndex     int      `json:"group_index"`
	SubmissionTime string   `json:"submission_time"`
	FileCount      int      `json:"file_count"`
	FileNameList   []string `json:"file_name_list"`

	EstimatedTokens int `json:"estimated_tokens"`
	ActualTokens    int `json:"actual_tokens"`

	GroupProcTimeInSec float64 `json:"group_proc_time_in_sec"`

	GroupPromptTokens    int `json:"group_prompt_tokens"`
	GroupCandidateTokens int `json:"group_candidate_tokens"`
	GroupOtherTokens     int `json:"group_other_tokens"`
	GroupTotalTokens     int `json:"group_total_tokens"`
}

// RetryStats summarizes content retry activity across the run.
type RetryStats struct {
	NumFilesMayNeedRetry         int     `json:"num_files_may_need_retry"`
	NumFilesHadRetry             int     `json:"num_files_had_retry"`
	PercentageFilesHadRetry      float64 `json:"percentage_files_had_retry"`
	NumFileFailedAfterMaxRetries int     `json:"num_file_failed_after_max_retries"`

	ActualTokensForRetries int `json:"actual_tokens_for_retries"`
	RetryPromptTokens      int `json:"retry_prompt_tokens"`
	RetryCandidateTokens   int `json:"retry_candidate_tokens"`
	RetryOtherTokens       int `json:"retry_other_tokens"`
	RetryTotalTokens       int `json:"retry_total_tokens"`
}

// OverallStats holds run-level totals and per-file averages.
type OverallStats struct {
	TotalFiles int `json:"total_files"`
	NumSuccess int `json:"num_success"`
	NumFailed  int `json:"num_failed"`

	TotalPromptTokens    int `json:"total_prompt_tokens"`
	TotalCandidateTokens int `json:"total_candidate_tokens"`
	TotalOtherTokens     int `json:"total_other_tokens"`
	TotalActualTokens    int `json:"total_actual_tokens"`
	TotalEstimatedTokens int `json:"total_estimated_tokens"`

	TotalProcTimeInSec float64 `json:"total_proc_time_in_sec"`

	AveragePromptTokensPerFile    float64 `json:"average_prompt_tokens_per_file"`
	AverageCandidateTokensPerFile float64 `json:"average_candidate_tokens_per_file"`
	AverageOtherTokensPerFile     float64 `json:"average_other_tokens_per_file"`
	AverageActualTokensPerFile    float64 `json:"average_actual_tokens_per_file"`
}

// BenchmarkComparison is the aggregate benchmark block.
type BenchmarkComparison struct {
	TotalFiles           int     `json:"total_files"`
	TotalFields          int     `json:"total_fields"`
	TotalUnmatchedFields int     `json:"total_unmatched_fields"`
	TotalUnmatchedFiles  int     `json:"total_unmatched_files"`
	InvalidFieldsPercent float64 `json:"invalid_fields_percent"`
	InvalidFilesPercent  float64 `json:"invalid_files_percent"`
}

// CostBlock prices the run's token usage.
type CostBlock struct {
	PriceObtainedDate string `json:"price_obtained_date"`

	PromptPricePer1M    float64 `json:"prompt_price_per_1M"`
	CandidatePricePer1M float64 `json:"candidate_price_per_1M"`
	OtherPricePer1M     float64 `json:"other_price_per_1M"`

	TotalPromptTokenCost    float64 `json:"total_prompt_token_cost"`
	TotalCandidateTokenCost float64 `json:"total_candidate_token_cost"`
	TotalOtherTokenCost     float64 `json:"total_other_token_cost"`
	TotalTokenCost          float64 `json:"total_token_cost"`
}

// Artifact is the full run statistics document.
type Artifact struct {
	RunSettings RunSettings          `json:"run_settings"`
	FileStats   map[string]FileStat  `json:"file_stats"`
	GroupStats  map[string]GroupStat `json:"group_stats"`
	RetryStats  RetryStats           `json:"retry_stats"`
	Overall     OverallStats         `json:"overall_stats"`

	Benchmark *BenchmarkComparison `json:"benchmark_comparison,omitempty"`
	Cost      *CostBlock           `json:"overall_cost,omitempty"`
}
