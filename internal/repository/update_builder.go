package repository

import (
	"fmt"
	"strings"

	"github.com/hitoshi/ragapi/internal/model"
)

// updateBuilder は部分更新用のUPDATE文を組み立てる。
// 指定された項目のみSET句に含め、update_dateは常にnow()で更新する。
type updateBuilder struct {
	sets []string
	args []any
}

func (b *updateBuilder) add(column string, value any) {
	b.args = append(b.args, value)
	b.sets = append(b.sets, fmt.Sprintf("%s = $%d", column, len(b.args)))
}

// setField はfが指定されている場合のみSET句に追加する。nullはNULLとして書き込む。
func setField[T any](b *updateBuilder, column string, f model.Field[T]) {
	if !f.Set {
		return
	}
	if f.Null {
		b.add(column, nil)
		return
	}
	b.add(column, f.Value)
}

func (b *updateBuilder) empty() bool {
	return len(b.sets) == 0
}

// build はUPDATE ... RETURNING文と引数を返す。
func (b *updateBuilder) build(table string, id int64, returning string) (string, []any) {
	sets := append(append([]string{}, b.sets...), "update_date = now()")
	args := append(append([]any{}, b.args...), id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		table, strings.Join(sets, ", "), len(args), returning)
	return query, args
}
