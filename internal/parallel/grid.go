package parallel

// Dispatch runs fn once for every cell of a groupsX x groupsY grid and
// returns when all cells are done. Each cell is one work item.
//
// With a nil or closed pool the grid runs on the calling goroutine.
func Dispatch(p *WorkerPool, groupsX, groupsY uint32, fn func(gx, gy uint32)) {
	total := int(groupsX) * int(groupsY)
	if total == 0 {
		return
	}
	if p == nil || !p.IsRunning() || p.Workers() == 1 || total == 1 {
		for gy := uint32(0); gy < groupsY; gy++ {
			for gx := uint32(0); gx < groupsX; gx++ {
				fn(gx, gy)
			}
		}
		return
	}

	work := make([]func(), 0, total)
	for gy := uint32(0); gy < groupsY; gy++ {
		for gx := uint32(0); gx < groupsX; gx++ {
			work = append(work, func() { fn(gx, gy) })
		}
	}
	p.ExecuteAll(work)
}
