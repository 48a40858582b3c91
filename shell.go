package main

import (
	"bytes"
	"strconv"

	"github.com/abiosoft/ishell"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newShellCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell over the registered disks",
		Args:  cobra.NoArgs,
		RunE: withSystem(cfg, func(sys *system, args []string) error {
			newShell(sys).Run()
			return nil
		}),
	}
}

func newShell(sys *system) *ishell.Shell {
	shell := ishell.New()
	shell.SetPrompt("disk > ")
	shell.Set("sys", sys)

	shell.AddCmd(&ishell.Cmd{
		Name: "ls",
		Help: "list registered disks",
		Func: shellLs,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "parts",
		Help: "parts NAME - list partitions",
		Func: shellParts,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "read",
		Help: "read NAME OFFSET LENGTH - hex dump a byte range",
		Func: shellRead,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "cat",
		Help: "cat FILE - print a proc file",
		Func: shellCat,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "unregister",
		Help: "unregister NAME - remove a disk from the registry",
		Func: shellUnregister,
	})

	return shell
}

func shellSystem(c *ishell.Context) *system {
	return c.Get("sys").(*system)
}

func shellLs(c *ishell.Context) {
	sys := shellSystem(c)
	for _, d := range sys.registry.Disks() {
		c.Printf("%s\t%d x %d\t%d partitions\n", d.Name, d.SectorCount, d.SectorSize, len(d.Partitions()))
	}
}

func shellParts(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Println("expected 1 argument")
		return
	}
	d, err := shellSystem(c).find(c.Args[0])
	if err != nil {
		c.Err(err)
		return
	}
	var buf bytes.Buffer
	printPartitions(&buf, d)
	c.Print(buf.String())
}

func shellRead(c *ishell.Context) {
	if len(c.Args) != 3 {
		c.Println("expected 3 arguments")
		return
	}
	d, err := shellSystem(c).find(c.Args[0])
	if err != nil {
		c.Err(err)
		return
	}
	offset, err := strconv.ParseUint(c.Args[1], 0, 64)
	if err != nil {
		c.Err(err)
		return
	}
	length, err := strconv.ParseUint(c.Args[2], 0, 64)
	if err != nil {
		c.Err(err)
		return
	}

	buf, err := readRange(d, offset, length)
	if err != nil {
		c.Err(err)
		return
	}
	var out bytes.Buffer
	hexDump(&out, buf, offset)
	c.Print(out.String())
}

func shellCat(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Println("expected 1 argument")
		return
	}
	data, err := afero.ReadFile(shellSystem(c).procs.Fs(), c.Args[0])
	if err != nil {
		c.Err(err)
		return
	}
	c.Print(string(data))
}

func shellUnregister(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Println("expected 1 argument")
		return
	}
	sys := shellSystem(c)
	d, err := sys.find(c.Args[0])
	if err != nil {
		c.Err(err)
		return
	}
	if err := sys.registry.Unregister(d); err != nil {
		c.Err(err)
	}
}
