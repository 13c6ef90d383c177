package optimizer

// Move 单元格修改
type Move struct {
	Day  int
	UID  string
	From string
	To   string
}

// journal 记录已执行的修改，失败时整体回滚
type journal struct {
	board Board
	moves []Move
}

func newJournal(b Board) *journal {
	return &journal{board: b}
}

// apply 执行并记录一次修改
func (j *journal) apply(day int, uid, from, to string) error {
	if err := j.board.UpdateShift(day, uid, from, to); err != nil {
		return err
	}
	j.moves = append(j.moves, Move{Day: day, UID: uid, From: from, To: to})
	return nil
}

// rollback 逆序撤销全部修改
func (j *journal) rollback() {
	for i := len(j.moves) - 1; i >= 0; i-- {
		m := j.moves[i]
		// 逆操作的前置值必然成立
		_ = j.board.UpdateShift(m.Day, m.UID, m.To, m.From)
	}
	j.moves = j.moves[:0]
}

// commit 确认修改
func (j *journal) commit() {
	j.moves = j.moves[:0]
}
