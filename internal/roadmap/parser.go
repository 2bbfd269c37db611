// Package roadmap 负责把模型输出的半结构化文本解析、校验为稳定的
// 路线图结构，并通过课程搜索服务富化课程引用。
package roadmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"career-agent-go/internal/constants"
	"career-agent-go/internal/types"
)

// 失败类型哨兵。解析失败和结构校验失败必须可区分，
// 但都折叠为统一的错误负载返回给调用方，绝不崩溃。
var (
	// ErrParseFailure 模型输出中定位不到或解析不出 JSON
	ErrParseFailure = errors.New("roadmap parse failure")
	// ErrSchemaFailure JSON 可解析但结构不符合路线图要求
	ErrSchemaFailure = errors.New("roadmap schema failure")
)

// fencedJSONPattern 匹配 ```json ... ``` 或 ``` ... ``` 代码块
var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSON 从模型输出中定位唯一的 JSON 对象文本。
// 按顺序尝试：(a) 围栏代码块内的 JSON；(b) 整体裁剪后恰好是 {...} 的输出。
// 两者都不匹配返回 ErrParseFailure。
func ExtractJSON(raw string) (string, error) {
	if m := fencedJSONPattern.FindStringSubmatch(raw); m != nil {
		return m[1], nil
	}

	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return trimmed, nil
	}

	return "", fmt.Errorf("%w: no JSON object found in model output", ErrParseFailure)
}

// Parse 解析并校验模型的路线图输出。
// variant 决定每条记录必须满足的字段集合。
// 返回的错误总是包装 ErrParseFailure 或 ErrSchemaFailure 之一。
func Parse(raw string, variant types.RoadmapVariant) (*types.Roadmap, error) {
	jsonText, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	// 先解析为宽松结构，便于发现多余/缺失键
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonText), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}

	rawList, ok := envelope["roadmap"]
	if !ok {
		return nil, fmt.Errorf("%w: missing top-level 'roadmap' key", ErrSchemaFailure)
	}
	if len(envelope) != 1 {
		return nil, fmt.Errorf("%w: unexpected top-level keys besides 'roadmap'", ErrSchemaFailure)
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal(rawList, &items); err != nil {
		return nil, fmt.Errorf("%w: 'roadmap' is not a list of objects: %v", ErrSchemaFailure, err)
	}
	if len(items) != constants.RoadmapRecordCount {
		return nil, fmt.Errorf("%w: expected %d roadmap records, got %d", ErrSchemaFailure, constants.RoadmapRecordCount, len(items))
	}

	records := make([]types.RoadmapRecord, 0, len(items))
	for i, item := range items {
		record, err := parseRecord(item, variant)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrSchemaFailure, i, err)
		}
		records = append(records, *record)
	}

	return &types.Roadmap{Records: records}, nil
}

// parseRecord 校验单条记录的键集合和字段取值
func parseRecord(item map[string]json.RawMessage, variant types.RoadmapVariant) (*types.RoadmapRecord, error) {
	allowed := map[string]bool{"title": true, "skills": true, "reasoning": true}
	required := []string{"title", "skills", "reasoning"}
	if variant == types.VariantCareer {
		for _, k := range []string{"courses_to_find", "salary", "growth"} {
			allowed[k] = true
			required = append(required, k)
		}
	}

	for key := range item {
		if !allowed[key] {
			return nil, fmt.Errorf("unexpected key %q", key)
		}
	}
	for _, key := range required {
		if _, ok := item[key]; !ok {
			return nil, fmt.Errorf("missing key %q", key)
		}
	}

	var record types.RoadmapRecord
	merged, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(merged, &record); err != nil {
		return nil, fmt.Errorf("field type mismatch: %v", err)
	}

	if strings.TrimSpace(record.Title) == "" {
		return nil, errors.New("title must not be empty")
	}
	minSkills, maxSkills := constants.AcademicMinSkills, constants.AcademicMaxSkills
	if variant == types.VariantCareer {
		minSkills, maxSkills = constants.CareerMinSkills, constants.CareerMaxSkills
	}
	if len(record.Skills) < minSkills || len(record.Skills) > maxSkills {
		return nil, fmt.Errorf("expected %d to %d skills, got %d", minSkills, maxSkills, len(record.Skills))
	}
	if strings.TrimSpace(record.Reasoning) == "" {
		return nil, errors.New("reasoning must not be empty")
	}

	if variant == types.VariantCareer {
		if strings.TrimSpace(record.Salary) == "" {
			return nil, errors.New("salary must not be empty")
		}
		switch record.Growth {
		case "High", "Medium", "Low":
		default:
			return nil, fmt.Errorf("growth must be High, Medium or Low, got %q", record.Growth)
		}
	}

	return &record, nil
}

// FailurePayload 将解析/校验错误转换为统一的用户可见错误负载
func FailurePayload(err error) types.ErrorPayload {
	if errors.Is(err, ErrSchemaFailure) {
		return types.ErrorPayload{Error: constants.RoadmapSchemaFailureMessage}
	}
	return types.ErrorPayload{Error: constants.RoadmapParseFailureMessage}
}
