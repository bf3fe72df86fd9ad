package main

import "github.com/liftedinit/mhchain/cmd/mhchain"

func main() {
	mhchain.Execute()
}
