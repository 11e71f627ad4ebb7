package recorder

import (
	"os"

	"github.com/goccy/go-json"
)

// JSON 文件记录器，一行一条记录，用于kafka不可用时的审计日志兜底
type JSONFileRecorder struct {
	Path string
}

func NewJSONFileRecorder(path string) *JSONFileRecorder {
	return &JSONFileRecorder{
		path,
	}
}

func (r *JSONFileRecorder) Record(result any) error {
	file, err := os.OpenFile(r.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	data = append(data, '\n')
	_, err = file.Write(data)
	return err
}
