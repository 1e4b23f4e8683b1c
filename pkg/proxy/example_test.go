package proxy_test

import (
	"fmt"

	wcmerrors "github.com/matzehuels/wcm/pkg/errors"
	"github.com/matzehuels/wcm/pkg/proxy"
)

func ExampleDecodeCommand() {
	cmd, err := proxy.DecodeCommand([]byte(`{"command": "setManifest", "data": {"polymer": "2.6.0"}}`))
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if set, ok := cmd.(proxy.SetManifest); ok {
		fmt.Println(set.Name(), set.Manifest["polymer"])
	}

	cmd, _ = proxy.DecodeCommand([]byte(`{"command": "flushCache"}`))
	fmt.Println(cmd.Name())
	// Output:
	// setManifest 2.6.0
	// flushCache
}

func ExampleDecodeCommand_unknown() {
	// Unknown names decode fine; the engine answers them with an error reply.
	cmd, err := proxy.DecodeCommand([]byte(`{"command": "reboot"}`))
	fmt.Printf("%T %s %v\n", cmd, cmd.Name(), err)

	_, err = proxy.DecodeCommand([]byte(`not json`))
	fmt.Println(wcmerrors.GetCode(err))
	// Output:
	// proxy.UnknownCommand reboot <nil>
	// INVALID_INPUT
}
