package normalize

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/paiban/roster/pkg/errors"
)

// DecodeYAML 解析 YAML 输入文档，未知字段视为错误
func DecodeYAML(r io.Reader) (*RawInput, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var raw RawInput
	if err := dec.Decode(&raw); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析 YAML 输入失败")
	}
	return &raw, nil
}

// DecodeJSON 解析 JSON 输入文档，未知字段视为错误
func DecodeJSON(r io.Reader) (*RawInput, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var raw RawInput
	if err := dec.Decode(&raw); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析 JSON 输入失败")
	}
	return &raw, nil
}

// LoadFile 按扩展名读取输入文件（.json 以外均按 YAML 处理）
func LoadFile(path string) (*RawInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeNotFound, fmt.Sprintf("无法打开输入文件 %s", path))
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return DecodeJSON(f)
	}
	return DecodeYAML(f)
}
