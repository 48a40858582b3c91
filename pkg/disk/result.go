package disk

const (
	ResultOK              Result = iota /* (0) Succeeded */
	ResultInvalidArgument               /* (1) Nil disk, empty name, zero length or zero sector size */
	ResultDuplicate                     /* (2) Name already registered */
	ResultNotFound                      /* (3) Disk is not registered */
	ResultIO                            /* (4) The driver failed to read a sector */
	ResultNoPartitions                  /* (5) Prober found no partition table */
)

// Result is the failure code reported by registry and read operations.
type Result uint

func (r Result) Error() string {
	var msg string
	switch r {
	case ResultInvalidArgument:
		msg = "(1) Given parameter is invalid"
	case ResultDuplicate:
		msg = "(2) A disk with this name is already registered"
	case ResultNotFound:
		msg = "(3) Could not find the disk"
	case ResultIO:
		msg = "(4) A hard error occurred in the low level disk I/O layer"
	case ResultNoPartitions:
		msg = "(5) No partition table found"
	default:
		msg = "unknown disk result error"
	}
	return "disk: " + msg
}
