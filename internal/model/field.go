package model

import (
	"bytes"
	"encoding/json"
)

// Field は部分更新リクエストの1項目を表す。
// JSONにキーが存在した場合のみSetがtrueになり、nullが指定された場合はNullがtrueになる。
// キーが省略された項目は更新対象外として扱う。
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// UnmarshalJSON はキーの存在とnullを記録しながら値をデコードする。
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		f.Null = true
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

// SetTo は値が指定されたFieldを返す。
func SetTo[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// SetNull はnullが指定されたFieldを返す。
func SetNull[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

// Ptr はnull指定の場合にnil、それ以外は値へのポインタを返す。
func (f Field[T]) Ptr() *T {
	if f.Null {
		return nil
	}
	v := f.Value
	return &v
}

// Cleared はnullが明示的に指定された場合にtrueを返す。
func (f Field[T]) Cleared() bool {
	return f.Set && f.Null
}
