package snowflake

import (
	"errors"
	"sync"

	"github.com/bwmarrin/snowflake"

	pkgerrors "Pointage/pkg/errors"
)

var (
	node *snowflake.Node
	once sync.Once

	errInvalidMachineID    = errors.New("invalid snowflake machine id")
	errInvalidDataCenterID = errors.New("invalid snowflake datacenter id")
)

// Init 初始化全局节点，datacenterID 和 machineID 都是 0~31
func Init(machineID, dataCenterID int64) error {
	var initErr error

	once.Do(func() {
		if machineID < 0 || machineID > 31 {
			initErr = errInvalidMachineID
			return
		}
		if dataCenterID < 0 || dataCenterID > 31 {
			initErr = errInvalidDataCenterID
			return
		}
		nodeID := (dataCenterID << 5) | machineID

		var err error
		node, err = snowflake.NewNode(nodeID)
		if err != nil {
			initErr = err
			return
		}
	})

	return initErr
}

func NextID() (int64, error) {
	if node == nil {
		return 0, pkgerrors.ErrIDGeneratorNotInitialized
	}

	return node.Generate().Int64(), nil
}

// Generator 把全局节点包装成考勤引擎需要的 IDGenerator
type Generator struct{}

func (Generator) NextID() (int64, error) {
	return NextID()
}
