// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package board

import "github.com/skarab-fw/skarab/neterr"

var errAxiDataBus = neterr.Wrap(neterr.AxiDataBus, "wishbone address out of range")
